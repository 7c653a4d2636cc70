// Package suggest debounces address suggestion lookups so that only the
// latest of a burst of keystrokes reaches the geocoding service.
package suggest

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/nearby/internal/model"
)

// DefaultDebounce is the quiet period before a lookup is issued.
const DefaultDebounce = 350 * time.Millisecond

// Lookup is the part of geocode.Client a Suggester needs.
type Lookup interface {
	LookupSuggestions(ctx context.Context, query string) []model.SuggestionItem
}

// Suggester serves one input stream. Each call supersedes every earlier one:
// superseded calls return before the lookup when possible and report their
// results as stale otherwise.
type Suggester struct {
	client   Lookup
	debounce time.Duration
	seq      atomic.Uint64
}

// New creates a Suggester. A negative debounce is treated as zero.
func New(client Lookup, debounce time.Duration) *Suggester {
	if debounce < 0 {
		debounce = 0
	}
	return &Suggester{client: client, debounce: debounce}
}

// Suggest waits out the debounce interval and then looks up query. The
// boolean is false when a newer call was issued in the meantime, in which
// case the items must be discarded. A blank query returns (nil, true)
// without a lookup.
func (s *Suggester) Suggest(ctx context.Context, query string) ([]model.SuggestionItem, bool) {
	id := s.seq.Add(1)
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, true
	}

	if s.debounce > 0 {
		timer := time.NewTimer(s.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false
		case <-timer.C:
		}
	}

	if s.seq.Load() != id {
		zap.L().Debug("suggest: superseded before lookup", zap.String("query", q))
		return nil, false
	}

	items := s.client.LookupSuggestions(ctx, q)
	if s.seq.Load() != id {
		zap.L().Debug("suggest: discarded stale results", zap.String("query", q), zap.Int("items", len(items)))
		return items, false
	}
	return items, true
}
