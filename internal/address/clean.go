// Package address canonicalizes raw US address text before it is sent to the
// geocoding service: unit/suite stripping, country qualification and
// "City, ST ZIP" decomposition.
package address

import (
	"regexp"
	"strings"
)

var (
	// unitRe matches a unit/suite/building qualifier and the token after it.
	unitRe = regexp.MustCompile(`(?i)\s+(?:(?:BLDG|BUILDING|STE|SUITE|UNIT|APT)\b\.?|#)\s*[0-9A-Z-]*`)

	spaceRe = regexp.MustCompile(`\s+`)

	// commaRunRe matches one or more separators, including blanks around them.
	commaRunRe = regexp.MustCompile(`\s*,(?:\s*,)*\s*`)
)

// Clean strips unit qualifiers, collapses whitespace and removes doubled or
// dangling commas. Separators are normalized to ", ".
//
// A single pass can expose a new qualifier (", #5" only becomes " #5" once
// the separator is re-spaced), so passes repeat until nothing changes. Every
// pass that changes the text either drops characters or settles spacing, so
// the loop terminates and Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	s := text
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = unitRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	s = commaRunRe.ReplaceAllString(s, ", ")
	return strings.Trim(s, ", ")
}

// JoinNonEmpty trims each part and joins the non-blank ones with ", ".
func JoinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
