// Package transformers holds the normalization plugins that turn raw
// parser records into canonical location records.
package transformers

import (
	"fmt"
	"strings"
)

// idAddress composes the single-line address form the business ID is
// hashed over.
func idAddress(street, suburb, state, postcode string) string {
	return fmt.Sprintf("%s, %s %s %s", street, suburb, state, postcode)
}

var stateNames = map[string]string{
	"NEW SOUTH WALES":              "NSW",
	"VICTORIA":                     "VIC",
	"QUEENSLAND":                   "QLD",
	"SOUTH AUSTRALIA":              "SA",
	"WESTERN AUSTRALIA":            "WA",
	"TASMANIA":                     "TAS",
	"NORTHERN TERRITORY":           "NT",
	"AUSTRALIAN CAPITAL TERRITORY": "ACT",
}

// normalizeState maps full state names onto their abbreviations and
// uppercases codes.
func normalizeState(state string) string {
	state = strings.ToUpper(strings.TrimSpace(state))
	if abbr, ok := stateNames[state]; ok {
		return abbr
	}
	return state
}

var driveThruKeywords = []string{
	"drive thru", "drive-thru", "drive through", "drivethrough",
}

// mentionsDriveThru reports whether any of the texts name a drive-thru.
func mentionsDriveThru(texts ...string) bool {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, keyword := range driveThruKeywords {
			if strings.Contains(lower, keyword) {
				return true
			}
		}
	}
	return false
}
