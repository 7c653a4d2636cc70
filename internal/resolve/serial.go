package resolve

import (
	"context"

	"github.com/sells-group/nearby/internal/model"
)

// Cascades is the pair of cascades a session runs.
type Cascades interface {
	ResolveCandidate(ctx context.Context, c model.Candidate) *model.Coordinate
	ResolveOrigin(ctx context.Context, q model.AddressQuery) *model.Coordinate
}

// Serial lets one cascade run at a time across every caller that shares it,
// so concurrent sessions never hit the service side by side.
type Serial struct {
	next Cascades
	sem  chan struct{}
}

var _ Cascades = (*Serial)(nil)

// NewSerial wraps next.
func NewSerial(next Cascades) *Serial {
	return &Serial{next: next, sem: make(chan struct{}, 1)}
}

// ResolveCandidate waits its turn, then runs the candidate cascade. It
// returns nil when ctx ends first.
func (s *Serial) ResolveCandidate(ctx context.Context, c model.Candidate) *model.Coordinate {
	if !s.acquire(ctx) {
		return nil
	}
	defer s.release()
	return s.next.ResolveCandidate(ctx, c)
}

// ResolveOrigin waits its turn, then runs the origin cascade.
func (s *Serial) ResolveOrigin(ctx context.Context, q model.AddressQuery) *model.Coordinate {
	if !s.acquire(ctx) {
		return nil
	}
	defer s.release()
	return s.next.ResolveOrigin(ctx, q)
}

func (s *Serial) acquire(ctx context.Context) bool {
	select {
	case s.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Serial) release() {
	<-s.sem
}
