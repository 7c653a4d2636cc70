package address

import (
	"regexp"
	"strings"
)

// Country is the country every lookup is restricted to. Qualifier is the
// marker appended to free-form queries; Synonyms are the tokens that count as
// an existing qualifier.
type Country struct {
	Code      string
	Name      string
	Qualifier string
	Synonyms  []string

	tokenRe *regexp.Regexp
}

// US is the default restriction.
var US = NewCountry("us", "United States", "USA",
	"USA", "US", "U.S.", "U.S.A.", "United States", "United States of America")

// NewCountry builds a Country and precompiles its token matcher. The
// qualifier is always treated as a synonym.
func NewCountry(code, name, qualifier string, synonyms ...string) Country {
	c := Country{
		Code:      strings.ToLower(strings.TrimSpace(code)),
		Name:      strings.TrimSpace(name),
		Qualifier: strings.TrimSpace(qualifier),
		Synonyms:  synonyms,
	}
	c.tokenRe = compileTokens(append([]string{c.Qualifier, c.Name}, synonyms...))
	return c
}

func compileTokens(tokens []string) *regexp.Regexp {
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\pL\pN])`)
}

// HasToken reports whether text already names the country as a whole word.
func (c Country) HasToken(text string) bool {
	re := c.tokenRe
	if re == nil {
		re = compileTokens(append([]string{c.Qualifier, c.Name}, c.Synonyms...))
	}
	if re == nil {
		return false
	}
	return re.MatchString(text)
}

// EnsureCountryQualifier appends ", <qualifier>" unless the text already
// carries a country token. Blank text stays blank.
func EnsureCountryQualifier(text string, c Country) string {
	s := strings.TrimSpace(text)
	if s == "" || c.Qualifier == "" {
		return s
	}
	if c.HasToken(s) {
		return s
	}
	return s + ", " + c.Qualifier
}
