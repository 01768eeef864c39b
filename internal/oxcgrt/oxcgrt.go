// Package oxcgrt filters the Oxford COVID-19 Government Response Tracker
// export by country and policy stringency.
package oxcgrt

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"covidcli/internal/dataprocessing"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

// DefaultCountry is the United Kingdom.
const DefaultCountry = "GBR"

// Threshold keeps only days where Policy is at least MinLevel.
type Threshold struct {
	Policy   string  `yaml:"policy" validate:"required"`
	MinLevel float64 `yaml:"min_level" validate:"gte=0"`
}

// Record is one country-day of the tracker.
type Record struct {
	Date   time.Time
	Levels map[string]float64
}

// Response is the tracker rows of one country that pass every threshold.
type Response struct {
	Country  string
	Policies []string
	Records  []Record
}

// ReadResponse reads and filters the tracker CSV at path.
func ReadResponse(path, country string, thresholds []Threshold) (*Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()
	return ParseResponse(f, country, thresholds)
}

// ParseResponse is ReadResponse over an open reader.
func ParseResponse(r io.Reader, country string, thresholds []Threshold) (*Response, error) {
	if country == "" {
		country = DefaultCountry
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read CSV header", err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, want := range []string{"CountryCode", "Date"} {
		if _, ok := idx[want]; !ok {
			return nil, apperrors.NewColumnNotFoundError(want, header)
		}
	}
	for _, th := range thresholds {
		if _, ok := idx[th.Policy]; !ok {
			return nil, apperrors.NewColumnNotFoundError(th.Policy, header)
		}
	}

	var policies []string
	for _, h := range header {
		if h = strings.TrimSpace(h); isPolicy(h) {
			policies = append(policies, h)
		}
	}

	resp := &Response{Country: country, Policies: policies}
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("line %d", line), err)
		}
		if value(rec, idx["CountryCode"]) != country {
			continue
		}

		date, err := parseDate(value(rec, idx["Date"]))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("line %d", line), err)
		}
		levels := make(map[string]float64, len(policies))
		for _, p := range policies {
			levels[p] = dataprocessing.ParseNumber(value(rec, idx[p]))
		}
		if !passes(levels, thresholds) {
			continue
		}
		resp.Records = append(resp.Records, Record{Date: date, Levels: levels})
	}

	sort.SliceStable(resp.Records, func(i, j int) bool { return resp.Records[i].Date.Before(resp.Records[j].Date) })
	return resp, nil
}

// Policy returns the daily level of policy over the span of the records.
// Days filtered out by the thresholds are missing.
func (r *Response) Policy(policy string) (series.Daily, error) {
	if !r.has(policy) {
		return series.Daily{}, apperrors.NewColumnNotFoundError(policy, r.Policies)
	}
	points := make([]series.Point, len(r.Records))
	for i, rec := range r.Records {
		points[i] = series.Point{Date: rec.Date, Value: rec.Levels[policy]}
	}
	return series.FromPoints(policy, points), nil
}

// Decreases returns the dates on which policy dropped below its level on
// the previous record.
func (r *Response) Decreases(policy string) ([]time.Time, error) {
	if !r.has(policy) {
		return nil, apperrors.NewColumnNotFoundError(policy, r.Policies)
	}
	var out []time.Time
	prev := math.NaN()
	for _, rec := range r.Records {
		v := rec.Levels[policy]
		if !math.IsNaN(prev) && !math.IsNaN(v) && v < prev {
			out = append(out, rec.Date)
		}
		if !math.IsNaN(v) {
			prev = v
		}
	}
	return out, nil
}

func (r *Response) has(policy string) bool {
	for _, p := range r.Policies {
		if p == policy {
			return true
		}
	}
	return false
}

func passes(levels map[string]float64, thresholds []Threshold) bool {
	for _, th := range thresholds {
		v := levels[th.Policy]
		if math.IsNaN(v) || v < th.MinLevel {
			return false
		}
	}
	return true
}

// isPolicy matches the indicator columns, which are prefixed with a code
// such as "C1_" or "H6_", and the stringency indexes.
func isPolicy(h string) bool {
	if strings.HasSuffix(h, "Flag") {
		return false
	}
	if strings.Contains(h, "Index") {
		return true
	}
	code, _, ok := strings.Cut(h, "_")
	if !ok || len(code) < 2 || len(code) > 3 {
		return false
	}
	return code[0] >= 'A' && code[0] <= 'Z' && code[1] >= '0' && code[1] <= '9'
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("20060102", s); err == nil {
		return t, nil
	}
	return series.ParseDate(s)
}

func value(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
