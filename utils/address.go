package utils

import (
	"regexp"
	"strings"
)

// AddressComponents is the result of splitting a raw Australian street
// address into its parts.
type AddressComponents struct {
	StreetAddress      string
	Suburb             string
	State              string
	Postcode           string
	ShoppingCentreName string
}

// statePostcodePattern matches an Australian state abbreviation followed
// by an optional 4-digit postcode, e.g. "VIC 3000".
var statePostcodePattern = regexp.MustCompile(`\b(ACT|NSW|NT|QLD|SA|TAS|VIC|WA)\b\.?,?\s*(\d{4})?`)

// shoppingCentrePattern flags address parts naming a shopping centre
// rather than a street. Heuristic: these sites write centre names in the
// first comma-separated part.
var shoppingCentrePattern = regexp.MustCompile(`(?i)\b(westfield|shopping centre|shopping center|shopping village|homemaker centre|plaza|arcade|mall|marketplace|market place|square|central)\b`)

// ParseAddress splits a raw address like
// "Westfield Doncaster, 619 Doncaster Rd, Doncaster VIC 3108" into
// components. These scraped address strings follow no contract, so the
// split is best effort: anything it cannot place stays in StreetAddress.
func ParseAddress(raw string) AddressComponents {
	var comps AddressComponents
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return comps
	}

	if m := statePostcodePattern.FindStringSubmatch(raw); m != nil {
		comps.State = m[1]
		comps.Postcode = m[2]
	}

	parts := splitAndTrim(raw, ",")

	// The suburb usually sits just before the state token, either in the
	// last part ("Doncaster VIC 3108") or as its own part.
	last := parts[len(parts)-1]
	if loc := statePostcodePattern.FindStringIndex(last); loc != nil {
		suburb := strings.TrimSpace(last[:loc[0]])
		if suburb != "" {
			comps.Suburb = suburb
		} else if len(parts) >= 2 {
			comps.Suburb = parts[len(parts)-2]
			parts = parts[:len(parts)-1]
		}
		parts = parts[:len(parts)-1]
	} else if len(parts) >= 2 {
		comps.Suburb = last
		parts = parts[:len(parts)-1]
	}

	if len(parts) > 1 && shoppingCentrePattern.MatchString(parts[0]) {
		comps.ShoppingCentreName = parts[0]
		parts = parts[1:]
	}

	comps.StreetAddress = strings.Join(parts, ", ")
	return comps
}

// FullAddress rebuilds the single-line form used for business IDs.
func (a AddressComponents) FullAddress() string {
	return strings.TrimSpace(a.StreetAddress + ", " + a.Suburb + " " + a.State + " " + a.Postcode)
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}
