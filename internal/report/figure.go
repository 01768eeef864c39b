package report

import (
	"image/color"
	"sort"

	"covidcli/internal/chart"
	"covidcli/internal/estimator"
	"covidcli/internal/seasonal"
	"covidcli/internal/series"
)

var (
	colourRaw         = mustColor("lightgrey")
	colourInfections  = mustColor("tab:blue")
	colourVaccination = mustColor("m")
)

// estimateFigure is the fatal infections panel, the log panel and, when
// asked for, a cumulative vaccinations panel.
func estimateFigure(job *Job, spec ChartSpec, est *estimator.Result, in *inputs, fits []estimator.SegmentResult) chart.Figure {
	from, to := spec.Range()
	window := func(s series.Daily) series.Daily { return s.Between(from, to) }

	linear := chart.Panel{Title: "fatal infections", YLabel: "fatal infections", Time: true}
	logPanel := chart.Panel{Title: "log(fatal infections)", YLabel: "log(fatal infections)", Time: true}

	infections := chart.DateLine("fatal infections", window(est.Infections), colourInfections)
	logLine := chart.DateLine("", window(est.Log), colourInfections)
	if spec.ShowDeaths {
		linear.Lines = append(linear.Lines, chart.DateLine("deaths (raw)", window(est.Raw), colourRaw), infections)
	} else {
		infections.Color, infections.Label = colourRaw, ""
		logLine.Color = colourRaw
		linear.Lines = append(linear.Lines, infections)
	}
	logPanel.Lines = append(logPanel.Lines, logLine)

	if spec.YMax > 0 {
		linear.Limits = &chart.Limits{Min: 0, Max: spec.YMax}
	}
	if m := window(est.Log).Max(); m > 0 {
		logPanel.Limits = &chart.Limits{Min: 0, Max: m * 1.05}
	}

	for i, res := range fits {
		if res.Err != nil {
			continue
		}
		lin, lg := chart.FitLines(res.Segment.Label, res.Fit, pickColor(spec.Fits[i].Color, i+1))
		linear.Lines = append(linear.Lines, lin)
		logPanel.Lines = append(logPanel.Lines, lg)
	}

	for i, rs := range spec.Regions {
		region := chart.Region{
			Label: rs.Label,
			Start: mustDate(rs.From),
			End:   mustDate(rs.To),
			Color: pickColor(rs.Color, i+3),
		}
		linear.Regions = append(linear.Regions, region)
		logPanel.Regions = append(logPanel.Regions, region)
	}

	events := chartEvents(spec, in)
	linear.Events, logPanel.Events = events, events

	fig := chart.Figure{Title: spec.Title, Panels: []chart.Panel{linear, logPanel}}
	if fig.Title == "" {
		fig.Title = job.Title
	}

	if spec.ShowVaccinations && in.vaccinations != nil {
		doses := chart.DateLine("vaccination doses (total)", window(in.vaccinations.Scale(1e-6)), colourVaccination)
		doses.Fill = true
		fig.Panels = append(fig.Panels, chart.Panel{
			Title:  "vaccinations",
			YLabel: "Total vaccination doses (million)",
			Time:   true,
			Lines:  []chart.Line{doses},
		})
	}
	fig.Cols = len(fig.Panels)
	return fig
}

// chartEvents merges the job's events with policy relaxations, keeps those
// inside the display range and orders them by date.
func chartEvents(spec ChartSpec, in *inputs) []chart.Event {
	from, to := spec.Range()
	var events []chart.Event
	for _, e := range spec.Events {
		events = append(events, chart.Event{Date: mustDate(e.Date), Label: e.Label})
	}
	if spec.PolicyEvents {
		events = append(events, in.events...)
	}

	kept := events[:0]
	for _, e := range events {
		if !e.Date.Before(from) && !e.Date.After(to) {
			kept = append(kept, e)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Date.Before(kept[j].Date) })
	return kept
}

// declineFigure overlays each normalized decline and its fit against days
// from the peak, linear on the left and log10 on the right.
func declineFigure(spec *DeclineSpec, declines []seasonal.Decline) chart.Figure {
	linear := chart.Panel{Title: "fatal infections (normalised)", XLabel: "Days from peak"}
	logPanel := chart.Panel{Title: "log(fatal infections)", XLabel: "Days from peak"}

	for i, d := range declines {
		c := pickColor(spec.Windows[i].Color, i)
		values := series.New(d.Window.Label, d.Window.Start, d.Values)

		raw := chart.OffsetLine("", d.Values, c)
		raw.Faint = true
		rawLog := chart.OffsetLine("", values.Log10().Values(), c)
		rawLog.Faint = true

		linear.Lines = append(linear.Lines, raw, chart.OffsetLine(d.Window.Label, d.Fit.Linear.Values(), c))
		logPanel.Lines = append(logPanel.Lines, rawLog, chart.OffsetLine(d.Window.Label, d.Fit.Log.Values(), c))
	}

	title := spec.Title
	if title == "" {
		title = "Post peak decline comparison"
	}
	return chart.Figure{Title: title, Cols: 2, Panels: []chart.Panel{linear, logPanel}}
}

func mustColor(name string) color.Color {
	c, err := chart.ParseColor(name)
	if err != nil {
		panic(err)
	}
	return c
}
