// Package region holds the state enumeration fetched on every load and the
// FIPS code helpers used to validate and normalise region codes.
package region

import (
	"strings"

	"github.com/rotisserie/eris"
)

// DistrictOfColumbia is the FIPS code used to probe for a new year.
const DistrictOfColumbia = "11"

// State is a US state identified by its 2-digit FIPS code.
type State struct {
	FIPS   string
	Abbrev string
	Name   string
}

// states lists the 50 states in FIPS order. DC and the territories are not
// part of the load.
var states = []State{
	{"01", "AL", "Alabama"},
	{"02", "AK", "Alaska"},
	{"04", "AZ", "Arizona"},
	{"05", "AR", "Arkansas"},
	{"06", "CA", "California"},
	{"08", "CO", "Colorado"},
	{"09", "CT", "Connecticut"},
	{"10", "DE", "Delaware"},
	{"12", "FL", "Florida"},
	{"13", "GA", "Georgia"},
	{"15", "HI", "Hawaii"},
	{"16", "ID", "Idaho"},
	{"17", "IL", "Illinois"},
	{"18", "IN", "Indiana"},
	{"19", "IA", "Iowa"},
	{"20", "KS", "Kansas"},
	{"21", "KY", "Kentucky"},
	{"22", "LA", "Louisiana"},
	{"23", "ME", "Maine"},
	{"24", "MD", "Maryland"},
	{"25", "MA", "Massachusetts"},
	{"26", "MI", "Michigan"},
	{"27", "MN", "Minnesota"},
	{"28", "MS", "Mississippi"},
	{"29", "MO", "Missouri"},
	{"30", "MT", "Montana"},
	{"31", "NE", "Nebraska"},
	{"32", "NV", "Nevada"},
	{"33", "NH", "New Hampshire"},
	{"34", "NJ", "New Jersey"},
	{"35", "NM", "New Mexico"},
	{"36", "NY", "New York"},
	{"37", "NC", "North Carolina"},
	{"38", "ND", "North Dakota"},
	{"39", "OH", "Ohio"},
	{"40", "OK", "Oklahoma"},
	{"41", "OR", "Oregon"},
	{"42", "PA", "Pennsylvania"},
	{"44", "RI", "Rhode Island"},
	{"45", "SC", "South Carolina"},
	{"46", "SD", "South Dakota"},
	{"47", "TN", "Tennessee"},
	{"48", "TX", "Texas"},
	{"49", "UT", "Utah"},
	{"50", "VT", "Vermont"},
	{"51", "VA", "Virginia"},
	{"53", "WA", "Washington"},
	{"54", "WV", "West Virginia"},
	{"55", "WI", "Wisconsin"},
	{"56", "WY", "Wyoming"},
}

// Codes returns the FIPS codes of all states in enumeration order.
func Codes() []string {
	codes := make([]string, len(states))
	for i, s := range states {
		codes[i] = s.FIPS
	}
	return codes
}

// Lookup returns the state for a FIPS code or postal abbreviation.
func Lookup(code string) (State, bool) {
	code = strings.TrimSpace(code)
	norm := NormalizeState(code)
	for _, s := range states {
		if s.FIPS == norm || strings.EqualFold(s.Abbrev, code) {
			return s, true
		}
	}
	return State{}, false
}

// NormalizeState normalizes a state FIPS code to 2 digits with zero-padding.
func NormalizeState(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if len(code) == 1 {
		return "0" + code
	}
	return code
}

// NormalizeCounty normalizes a county FIPS code to 3 digits with zero-padding.
func NormalizeCounty(code string) string {
	return pad(code, 3)
}

// NormalizeTract normalizes a census tract code to 6 digits with zero-padding.
func NormalizeTract(code string) string {
	return pad(code, 6)
}

func pad(code string, digits int) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	for len(code) < digits {
		code = "0" + code
	}
	return code
}

// Resolve turns user-supplied region codes (FIPS or postal abbreviations)
// into normalised FIPS codes, keeping the given order. An empty input
// selects every state.
func Resolve(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return Codes(), nil
	}
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if strings.TrimSpace(c) == "" {
			continue
		}
		fips, err := ResolveCode(c)
		if err != nil {
			return nil, err
		}
		if seen[fips] {
			continue
		}
		seen[fips] = true
		out = append(out, fips)
	}
	if len(out) == 0 {
		return nil, eris.New("region: no region codes given")
	}
	return out, nil
}

// ResolveCode turns one state FIPS code or postal abbreviation into a
// normalised FIPS code. The District of Columbia ("11" or "DC") is accepted
// even though it is not part of the state enumeration.
func ResolveCode(code string) (string, error) {
	if s, ok := Lookup(code); ok {
		return s.FIPS, nil
	}
	c := strings.TrimSpace(code)
	if NormalizeState(c) == DistrictOfColumbia || strings.EqualFold(c, "DC") {
		return DistrictOfColumbia, nil
	}
	return "", eris.Errorf("region: unknown state code %q", code)
}
