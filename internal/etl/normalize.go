//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package etl

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pgEdge/pgedge-econ/internal/schema"
)

// stateCodes maps USPS codes to state names.
var stateCodes = map[string]string{
	"AK": "Alaska", "AL": "Alabama", "AR": "Arkansas", "AZ": "Arizona",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DC": "District of Columbia",
	"DE": "Delaware", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"IA": "Iowa", "ID": "Idaho", "IL": "Illinois", "IN": "Indiana",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "MA": "Massachusetts",
	"MD": "Maryland", "ME": "Maine", "MI": "Michigan", "MN": "Minnesota",
	"MO": "Missouri", "MS": "Mississippi", "MT": "Montana", "NC": "North Carolina",
	"ND": "North Dakota", "NE": "Nebraska", "NH": "New Hampshire", "NJ": "New Jersey",
	"NM": "New Mexico", "NV": "Nevada", "NY": "New York", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VA": "Virginia", "VT": "Vermont", "WA": "Washington",
	"WI": "Wisconsin", "WV": "West Virginia", "WY": "Wyoming",
}

// Census Bureau divisions and regions.
var (
	censusDivisions = []string{
		"New England", "Middle Atlantic", "East North Central",
		"West North Central", "South Atlantic", "East South Central",
		"West South Central", "Mountain", "Pacific",
	}
	censusRegions = []string{"Northeast", "Midwest", "South", "West"}

	// dcLabels are spellings of the District of Columbia.
	dcLabels = []string{"D.C.", "DC", "Washington, D.C.", "Washington D.C.", "Washington, DC", "Washington DC"}

	// nationalLabels are spellings of the national total.
	nationalLabels = []string{"United States", "U.S.", "US", "USA", "U.S. total", "US total"}
)

// NationalName is the canonical label of the national total, stored as a
// region.
const NationalName = "United States"

// known maps a lower-cased label to its canonical spelling and type.
var known = func() map[string]knownLabel {
	m := make(map[string]knownLabel, len(stateCodes)+len(censusDivisions)+len(censusRegions))
	for _, name := range stateCodes {
		m[strings.ToLower(name)] = knownLabel{name, schema.RegionState}
	}
	for _, name := range censusDivisions {
		m[strings.ToLower(name)] = knownLabel{name, schema.RegionDivision}
	}
	for _, name := range censusRegions {
		m[strings.ToLower(name)] = knownLabel{name, schema.RegionRegion}
	}
	for _, name := range dcLabels {
		m[strings.ToLower(name)] = knownLabel{stateCodes["DC"], schema.RegionState}
	}
	for _, name := range nationalLabels {
		m[strings.ToLower(name)] = knownLabel{NationalName, schema.RegionRegion}
	}
	return m
}()

type knownLabel struct {
	name       string
	regionType string
}

var titleCaser = cases.Title(language.AmericanEnglish)

// StateName returns the state name for a USPS code. Dots are ignored so
// "D.C." matches DC.
func StateName(code string) (string, bool) {
	code = strings.ReplaceAll(strings.TrimSpace(code), ".", "")
	name, ok := stateCodes[strings.ToUpper(code)]
	return name, ok
}

// CleanLabel trims a raw label, collapses inner whitespace and fixes
// casing. Known states, divisions and regions get their canonical
// spelling; other labels written entirely in upper or lower case are
// title-cased. Mixed-case labels are kept as written.
func CleanLabel(raw string) string {
	s := collapseSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if s == "" {
		return ""
	}
	if k, ok := known[strings.ToLower(s)]; ok {
		return k.name
	}
	if isSingleCase(s) {
		return titleCaser.String(s)
	}
	return s
}

// Classify returns the canonical label and its region type. Labels that
// are not a state, division or region take defaultType.
func Classify(label, defaultType string) (string, string) {
	clean := CleanLabel(label)
	if k, ok := known[strings.ToLower(clean)]; ok {
		return k.name, k.regionType
	}
	return clean, defaultType
}

// ExpandArea maps a BLS area name to the states it covers:
// "Dallas-Fort Worth-Arlington, TX" gives Texas and
// "Philadelphia-Camden-Wilmington, PA-NJ-DE-MD" gives four states.
// "Urban Alaska" and "Urban Hawaii" map to their state. Any other
// label yields nil.
func ExpandArea(label string) []string {
	clean := CleanLabel(label)
	switch strings.ToLower(clean) {
	case "urban alaska":
		return []string{"Alaska"}
	case "urban hawaii":
		return []string{"Hawaii"}
	}

	idx := strings.LastIndex(clean, ",")
	if idx < 0 {
		return nil
	}

	var states []string
	seen := make(map[string]bool)
	for _, code := range strings.Split(clean[idx+1:], "-") {
		name, ok := StateName(code)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		states = append(states, name)
	}
	return states
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isSingleCase reports whether every letter of s has the same case.
func isSingleCase(s string) bool {
	var upper, lower bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	return upper != lower
}
