package cmi

import (
	"fmt"
	"strings"

	apperrors "covidcli/internal/errors"
)

// SMRSet selects the averaging period of the weekly SMR sheets.
type SMRSet int

const (
	Weekly SMRSet = iota
	Quarterly
	Annual
)

var setSheets = map[SMRSet]string{
	Weekly:    "WeeklySMR",
	Quarterly: "WeeklySMR13",
	Annual:    "WeeklySMR53",
}

var setNames = map[string]SMRSet{
	"weekly":    Weekly,
	"quarterly": Quarterly,
	"annual":    Annual,
}

// ParseSMRSet parses "weekly", "quarterly" or "annual".
func ParseSMRSet(s string) (SMRSet, error) {
	set, ok := setNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("SMR set must be weekly, quarterly or annual: got %q", s))
	}
	return set, nil
}

// Sheet is the worksheet holding the set.
func (s SMRSet) Sheet() string { return setSheets[s] }

// Gender is a CMI sex category.
type Gender int

const (
	Unisex Gender = iota
	Male
	Female
)

var genderNames = [...]string{"Unisex", "Male", "Female"}

func (g Gender) String() string {
	if g < 0 || int(g) >= len(genderNames) {
		return fmt.Sprintf("Gender(%d)", int(g))
	}
	return genderNames[g]
}

// ParseGender parses a gender name, ignoring case.
func ParseGender(s string) (Gender, error) {
	for i, name := range genderNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Gender(i), nil
		}
	}
	return 0, apperrors.NewAppValidationError(fmt.Sprintf("gender not in %v: got %q", genderNames, s))
}

// AgeBand is a CMI age range.
type AgeBand int

const (
	Age20to100 AgeBand = iota
	Age0to64
	Age65to84
	Age85plus
	AgeUnder1
	Age1to14
	Age15to44
	Age45to64
	Age65to74
	Age75to84
)

var bandNames = [...]string{
	"20to100",
	"0to64",
	"65to84",
	"85plus",
	"Under1",
	"1to14",
	"15to44",
	"45to64",
	"65to74",
	"75to84",
}

// AgeBands lists every band in publication order.
func AgeBands() []AgeBand {
	out := make([]AgeBand, len(bandNames))
	for i := range out {
		out[i] = AgeBand(i)
	}
	return out
}

func (b AgeBand) String() string {
	if b < 0 || int(b) >= len(bandNames) {
		return fmt.Sprintf("AgeBand(%d)", int(b))
	}
	return bandNames[b]
}

// ParseAgeBand parses a band such as "20to100" or "85plus".
func ParseAgeBand(s string) (AgeBand, error) {
	for i, name := range bandNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return AgeBand(i), nil
		}
	}
	return 0, apperrors.NewAppValidationError(fmt.Sprintf("age band not in %v: got %q", bandNames, s))
}

// smrHeaders maps every published (gender, band) pair to its column header
// in the weekly SMR sheets.
var smrHeaders = [3][10]string{
	Unisex: {
		"U_20to100", "U_0to64", "U_65to84", "U_85plus", "U_Under1",
		"U_1to14", "U_15to44", "U_45to64", "U_65to74", "U_75to84",
	},
	Male: {
		"M_20to100", "M_0to64", "M_65to84", "M_85plus", "M_Under1",
		"M_1to14", "M_15to44", "M_45to64", "M_65to74", "M_75to84",
	},
	Female: {
		"F_20to100", "F_0to64", "F_65to84", "F_85plus", "F_Under1",
		"F_1to14", "F_15to44", "F_45to64", "F_65to74", "F_75to84",
	},
}

// Category is a validated (gender, age band) pair.
type Category struct {
	Gender  Gender
	AgeBand AgeBand
}

// NewCategory validates the pair against the published table.
func NewCategory(g Gender, b AgeBand) (Category, error) {
	if g < 0 || int(g) >= len(smrHeaders) || b < 0 || int(b) >= len(smrHeaders[0]) {
		return Category{}, apperrors.NewAppValidationError(
			fmt.Sprintf("no SMR column for %s %s", g, b))
	}
	return Category{Gender: g, AgeBand: b}, nil
}

// Header is the weekly SMR column header of the category.
func (c Category) Header() string {
	return smrHeaders[c.Gender][c.AgeBand]
}

// Categories lists every published category.
func Categories() []Category {
	var out []Category
	for g := range smrHeaders {
		for b := range smrHeaders[g] {
			out = append(out, Category{Gender: Gender(g), AgeBand: AgeBand(b)})
		}
	}
	return out
}

func (c Category) String() string {
	return c.Gender.String() + " " + c.AgeBand.String()
}
