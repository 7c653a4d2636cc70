// Package ranking produces sorted, filtered views over candidates and
// extracts the nearest resolved ones.
package ranking

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/nearby/internal/model"
)

// DefaultTopK is how many nearest candidates a pass reports.
const DefaultTopK = 3

// SortMode selects the order of a view.
type SortMode string

// Sort modes.
const (
	NameAsc      SortMode = "name-asc"
	NameDesc     SortMode = "name-desc"
	DistanceAsc  SortMode = "distance-asc"
	DistanceDesc SortMode = "distance-desc"
)

// DefaultSort is the order used before any pass has run.
const DefaultSort = NameAsc

// Modes lists every valid SortMode.
var Modes = []SortMode{NameAsc, NameDesc, DistanceAsc, DistanceDesc}

// ErrUnknownSort is returned by ParseSortMode for unrecognized input.
var ErrUnknownSort = eris.New("ranking: unknown sort mode")

// ParseSortMode parses a mode name. Blank input yields DefaultSort.
func ParseSortMode(s string) (SortMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSort, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", eris.Wrapf(ErrUnknownSort, "%q", s)
}

func (m SortMode) String() string { return string(m) }

// View filters then stably sorts a copy of candidates. The filter is a
// case-insensitive substring match against name or label; blank matches
// everything. Unresolved candidates sort last in both distance orders.
func View(candidates []model.Candidate, mode SortMode, filter string) []model.Candidate {
	out := Filter(candidates, filter)
	Sort(out, mode)
	return out
}

// Filter returns deep copies of the candidates matching filter, in order.
func Filter(candidates []model.Candidate, filter string) []model.Candidate {
	needle := strings.TrimSpace(filter)
	if needle == "" {
		return model.CloneAll(candidates)
	}

	fold := cases.Fold()
	needle = fold.String(needle)

	out := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.Contains(fold.String(c.Name), needle) || strings.Contains(fold.String(c.Label), needle) {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Sort orders candidates in place. The sort is stable so ties keep their
// ingestion order.
func Sort(candidates []model.Candidate, mode SortMode) {
	switch mode {
	case NameDesc:
		col := newCollator()
		slices.SortStableFunc(candidates, func(a, b model.Candidate) int {
			return col.CompareString(b.Name, a.Name)
		})
	case DistanceAsc:
		slices.SortStableFunc(candidates, func(a, b model.Candidate) int {
			return compareDistance(a, b, false)
		})
	case DistanceDesc:
		slices.SortStableFunc(candidates, func(a, b model.Candidate) int {
			return compareDistance(a, b, true)
		})
	default:
		col := newCollator()
		slices.SortStableFunc(candidates, func(a, b model.Candidate) int {
			return col.CompareString(a.Name, b.Name)
		})
	}
}

// TopNearest returns the k closest resolved candidates, ascending. It
// ignores any filter or sort state.
func TopNearest(candidates []model.Candidate, k int) []model.Candidate {
	if k <= 0 {
		return nil
	}
	resolved := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.HasDistance() {
			resolved = append(resolved, c.Clone())
		}
	}
	Sort(resolved, DistanceAsc)
	if len(resolved) > k {
		resolved = resolved[:k]
	}
	return resolved
}

// compareDistance orders resolved candidates by distance and puts
// unresolved ones last regardless of direction.
func compareDistance(a, b model.Candidate, desc bool) int {
	da, okA := a.Distance()
	db, okB := b.Distance()
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	if desc {
		da, db = db, da
	}
	switch {
	case da < db:
		return -1
	case da > db:
		return 1
	default:
		return 0
	}
}

// newCollator returns a fresh collator; collate.Collator is not safe for
// concurrent use.
func newCollator() *collate.Collator {
	return collate.New(language.AmericanEnglish, collate.IgnoreCase)
}
