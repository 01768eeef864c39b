package chart

import (
	"fmt"
	"image/color"
	"strings"

	"gonum.org/v1/plot/plotutil"

	apperrors "covidcli/internal/errors"
)

var named = map[string]color.NRGBA{
	"tab:blue":   {R: 31, G: 119, B: 180, A: 255},
	"tab:orange": {R: 255, G: 127, B: 14, A: 255},
	"tab:green":  {R: 44, G: 160, B: 44, A: 255},
	"tab:red":    {R: 214, G: 39, B: 40, A: 255},
	"tab:purple": {R: 148, G: 103, B: 189, A: 255},
	"tab:brown":  {R: 140, G: 86, B: 75, A: 255},
	"tab:pink":   {R: 227, G: 119, B: 194, A: 255},
	"tab:gray":   {R: 127, G: 127, B: 127, A: 255},
	"tab:olive":  {R: 188, G: 189, B: 34, A: 255},
	"tab:cyan":   {R: 23, G: 190, B: 207, A: 255},
	"lightgrey":  {R: 211, G: 211, B: 211, A: 255},
	"grey":       {R: 128, G: 128, B: 128, A: 255},
	"black":      {A: 255},
	"red":        {R: 255, A: 255},
	"green":      {G: 128, A: 255},
	"blue":       {B: 255, A: 255},
	"magenta":    {R: 191, B: 191, A: 255},
	"m":          {R: 191, B: 191, A: 255},
}

// ParseColor accepts the tableau names ("tab:blue"), a few plain names and
// #rrggbb.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := named[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		var r, g, b uint8
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err == nil {
			return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
		}
	}
	return color.NRGBA{}, apperrors.NewAppValidationError(fmt.Sprintf("unknown colour %q", s))
}

// Palette returns the i-th default colour.
func Palette(i int) color.Color {
	return plotutil.Color(i)
}

// fade returns c with its alpha scaled by a.
func fade(c color.Color, a float64) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A) * a)
	return n
}
