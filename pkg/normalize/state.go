// Package normalize provides the pure field-normalization layer applied to
// every record before it is written. All functions are total (they never
// return an error) and idempotent: normalizing an already-normalized value
// is a no-op. No I/O happens here.
package normalize

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// folder produces case-insensitive lookup keys. Unicode case folding rather
// than ASCII lowering keeps full-name matching correct for any input casing.
var folder = cases.Fold()

// stateNameToCode maps full state and territory names to their two-letter
// codes. Congress.gov uses these codes on the member endpoint.
var stateNameToCode = map[string]string{
	"Alabama": "AL", "Alaska": "AK", "Arizona": "AZ", "Arkansas": "AR",
	"California": "CA", "Colorado": "CO", "Connecticut": "CT", "Delaware": "DE",
	"Florida": "FL", "Georgia": "GA", "Hawaii": "HI", "Idaho": "ID",
	"Illinois": "IL", "Indiana": "IN", "Iowa": "IA", "Kansas": "KS",
	"Kentucky": "KY", "Louisiana": "LA", "Maine": "ME", "Maryland": "MD",
	"Massachusetts": "MA", "Michigan": "MI", "Minnesota": "MN", "Mississippi": "MS",
	"Missouri": "MO", "Montana": "MT", "Nebraska": "NE", "Nevada": "NV",
	"New Hampshire": "NH", "New Jersey": "NJ", "New Mexico": "NM", "New York": "NY",
	"North Carolina": "NC", "North Dakota": "ND", "Ohio": "OH", "Oklahoma": "OK",
	"Oregon": "OR", "Pennsylvania": "PA", "Rhode Island": "RI", "South Carolina": "SC",
	"South Dakota": "SD", "Tennessee": "TN", "Texas": "TX", "Utah": "UT",
	"Vermont": "VT", "Virginia": "VA", "Washington": "WA", "West Virginia": "WV",
	"Wisconsin": "WI", "Wyoming": "WY",

	// Territories with delegates
	"American Samoa": "AS", "District of Columbia": "DC", "Guam": "GU",
	"Northern Mariana Islands": "MP", "Puerto Rico": "PR", "Virgin Islands": "VI",
}

// stateCodes is the set of valid two-letter codes.
var stateCodes = make(map[string]struct{}, len(stateNameToCode))

// foldedNameToCode is the case-folded lookup table for full names.
var foldedNameToCode = make(map[string]string, len(stateNameToCode))

func init() {
	for name, code := range stateNameToCode {
		stateCodes[code] = struct{}{}
		foldedNameToCode[folder.String(name)] = code
	}
}

// StateCodes returns the valid two-letter codes in alphabetical order.
// Fetchers iterate these when no state scope filter is set.
func StateCodes() []string {
	codes := make([]string, 0, len(stateCodes))
	for code := range stateCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// State normalizes a state name or code to its canonical two-letter
// uppercase form. It accepts full names ("Utah"), codes in any case ("ut"),
// and surrounding whitespace. ok is false for unrecognized input.
func State(s string) (code string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if len(s) == 2 {
		code = strings.ToUpper(s)
		if _, valid := stateCodes[code]; valid {
			return code, true
		}
		return "", false
	}

	if code, found := foldedNameToCode[folder.String(s)]; found {
		return code, true
	}
	return "", false
}

// IsStateCode reports whether s is already a canonical two-letter code.
func IsStateCode(s string) bool {
	_, ok := stateCodes[s]
	return ok
}
