package address

import "strings"

// stateNames maps upper-case USPS abbreviations to full state names.
var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming", "DC": "District of Columbia",
	"PR": "Puerto Rico",
}

// nameToAbbr is the reverse of stateNames keyed by lower-case name.
var nameToAbbr = func() map[string]string {
	m := make(map[string]string, len(stateNames))
	for abbr, name := range stateNames {
		m[strings.ToLower(name)] = abbr
	}
	return m
}()

// StateAbbr normalizes "il", "IL" or "Illinois" to "IL". Unknown values are
// returned trimmed and otherwise untouched.
func StateAbbr(state string) string {
	s := strings.TrimSpace(state)
	if s == "" {
		return ""
	}
	up := strings.ToUpper(s)
	if _, ok := stateNames[up]; ok {
		return up
	}
	if abbr, ok := nameToAbbr[strings.ToLower(strings.Join(strings.Fields(s), " "))]; ok {
		return abbr
	}
	return s
}

// IsStateAbbr reports whether s is a known two-letter state code.
func IsStateAbbr(s string) bool {
	_, ok := stateNames[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}
