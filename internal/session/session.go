// Package session holds one ranking session: the candidate set, the current
// view settings, the chosen origin and at most one in-flight ranking pass.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nearby/internal/model"
	"github.com/sells-group/nearby/internal/pacer"
	"github.com/sells-group/nearby/internal/ranking"
)

var (
	// ErrPassInProgress rejects a pass start, reset or re-ingestion while a
	// pass is running.
	ErrPassInProgress = eris.New("session: ranking pass already in progress")

	// ErrOriginUnresolved means no strategy could locate the origin address.
	ErrOriginUnresolved = eris.New("session: origin address could not be resolved")

	// ErrEmptyOrigin means every origin field was blank.
	ErrEmptyOrigin = eris.New("session: origin address is empty")

	// ErrInvalidOrigin means an explicit origin coordinate is out of range.
	ErrInvalidOrigin = eris.New("session: origin out of range")
)

// OriginRequest names a pass origin. A non-nil Coordinate, such as a picked
// suggestion, wins over Address.
type OriginRequest struct {
	Address    model.AddressQuery
	Coordinate *model.Coordinate
}

// Resolver is the part of resolve.Resolver a session needs.
type Resolver interface {
	ResolveCandidate(ctx context.Context, c model.Candidate) *model.Coordinate
	ResolveOrigin(ctx context.Context, q model.AddressQuery) *model.Coordinate
}

// ProgressFunc is called after each candidate a pass visits.
type ProgressFunc func(processed, total int, current string)

// Progress is a snapshot of the current or last pass.
type Progress struct {
	Running   bool   `json:"running"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Current   string `json:"current"`
}

// Option configures a Session.
type Option func(*Session)

// WithTopK sets how many nearest candidates a completed pass reports.
func WithTopK(k int) Option {
	return func(s *Session) {
		if k > 0 {
			s.topK = k
		}
	}
}

// Session is safe for concurrent use. Candidate distances are only written by
// the pass goroutine.
type Session struct {
	resolver Resolver
	pacer    pacer.Waiter
	topK     int

	mu         sync.Mutex
	candidates []model.Candidate
	sort       ranking.SortMode
	filter     string
	origin     *model.Coordinate
	running    bool
	cancel     context.CancelFunc
	progress   Progress
}

// New creates a session over candidates. The slice is copied.
func New(candidates []model.Candidate, resolver Resolver, p pacer.Waiter, opts ...Option) *Session {
	s := &Session{
		resolver:   resolver,
		pacer:      p,
		topK:       ranking.DefaultTopK,
		candidates: model.CloneAll(candidates),
		sort:       ranking.DefaultSort,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace swaps in a freshly ingested candidate set.
func (s *Session) Replace(candidates []model.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrPassInProgress
	}
	s.candidates = model.CloneAll(candidates)
	s.progress = Progress{}
	return nil
}

// Candidates returns a copy of the candidates in ingestion order.
func (s *Session) Candidates() []model.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneAll(s.candidates)
}

// Len returns the number of candidates.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candidates)
}

// SetSort changes the view order.
func (s *Session) SetSort(mode ranking.SortMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = mode
}

// Sort returns the current view order.
func (s *Session) Sort() ranking.SortMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// SetFilter changes the view filter.
func (s *Session) SetFilter(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = strings.TrimSpace(filter)
}

// Filter returns the current view filter.
func (s *Session) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// View returns the candidates under the current sort and filter.
func (s *Session) View() []model.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ranking.View(s.candidates, s.sort, s.filter)
}

// TopNearest returns the k nearest resolved candidates. k <= 0 uses the
// session's configured top-K.
func (s *Session) TopNearest(k int) []model.Candidate {
	if k <= 0 {
		k = s.topK
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ranking.TopNearest(s.candidates, k)
}

// Origin returns the last origin set or resolved, if any.
func (s *Session) Origin() *model.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.origin == nil {
		return nil
	}
	o := *s.origin
	return &o
}

// SetOrigin records an origin picked directly, e.g. from a suggestion. It is
// rejected while a pass or an origin lookup holds the session.
func (s *Session) SetOrigin(c model.Coordinate) error {
	if !c.Valid() {
		return eris.Wrapf(ErrInvalidOrigin, "%s", c)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrPassInProgress
	}
	s.origin = &c
	return nil
}

// ResolveOrigin runs the origin cascade, then waits for the pacer so the
// first candidate lookup is spaced from the origin lookups. It holds the pass
// slot while it runs, so it fails fast with ErrPassInProgress when a pass or
// another origin lookup is active.
func (s *Session) ResolveOrigin(ctx context.Context, q model.AddressQuery) (*model.Coordinate, error) {
	if q.IsEmpty() {
		return nil, ErrEmptyOrigin
	}
	if err := s.claim(); err != nil {
		return nil, err
	}
	defer s.release()

	coord, err := s.lookupOrigin(ctx, q)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.origin = &coord
	s.mu.Unlock()
	return &coord, nil
}

// locate turns an origin request into a coordinate. The caller holds the
// pass slot.
func (s *Session) locate(ctx context.Context, req OriginRequest) (model.Coordinate, error) {
	if req.Coordinate != nil {
		if !req.Coordinate.Valid() {
			return model.Coordinate{}, eris.Wrapf(ErrInvalidOrigin, "%s", *req.Coordinate)
		}
		return *req.Coordinate, nil
	}
	if req.Address.IsEmpty() {
		return model.Coordinate{}, ErrEmptyOrigin
	}
	return s.lookupOrigin(ctx, req.Address)
}

func (s *Session) lookupOrigin(ctx context.Context, q model.AddressQuery) (model.Coordinate, error) {
	coord := s.resolver.ResolveOrigin(ctx, q)
	if err := s.pacer.Wait(ctx); err != nil {
		return model.Coordinate{}, eris.Wrap(err, "session: resolve origin")
	}
	if coord == nil {
		return model.Coordinate{}, eris.Wrapf(ErrOriginUnresolved, "%q", q.Freeform())
	}
	return *coord, nil
}

// claim reserves the pass slot.
func (s *Session) claim() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrPassInProgress
	}
	s.running = true
	return nil
}

// release frees a slot taken by claim that never became a pass.
func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.cancel = nil
}

// Progress returns a snapshot of the current or last pass.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Running reports whether a pass is in flight.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Cancel stops the in-flight pass. It reports whether there was one.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Reset clears every distance and returns the view to its initial state.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrPassInProgress
	}
	for i := range s.candidates {
		s.candidates[i].ClearResolution()
	}
	s.sort = ranking.DefaultSort
	s.filter = ""
	s.origin = nil
	s.progress = Progress{}
	zap.L().Debug("session: reset", zap.Int("candidates", len(s.candidates)))
	return nil
}
