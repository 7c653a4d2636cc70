package address

import (
	"regexp"
	"strings"
)

// CityStateZip is the decomposition of an address' second line.
type CityStateZip struct {
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

var (
	cityStateZipRe = regexp.MustCompile(`(?i)^(.+?),\s*([A-Z]{2})\s*(\d{5}(?:-\d{4})?)?$`)
	stateZipRe     = regexp.MustCompile(`(?i)^([A-Z]{2})\s*(\d{5}(?:-\d{4})?)$`)
)

// ParseCityStateZip splits "City, ST ZIP" or "ST ZIP". Any other shape is
// returned whole as the city with empty state and zip.
func ParseCityStateZip(line string) CityStateZip {
	s := strings.TrimSpace(line)

	if m := cityStateZipRe.FindStringSubmatch(s); m != nil {
		return CityStateZip{
			City:  strings.TrimSpace(m[1]),
			State: strings.ToUpper(m[2]),
			Zip:   m[3],
		}
	}

	if m := stateZipRe.FindStringSubmatch(s); m != nil {
		return CityStateZip{
			State: strings.ToUpper(m[1]),
			Zip:   m[2],
		}
	}

	return CityStateZip{City: s}
}
