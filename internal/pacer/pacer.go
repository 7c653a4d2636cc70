// Package pacer spaces consecutive geocoding cascades to respect the
// service's one-request-per-second usage policy.
package pacer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultDelay is the spacing used against the public Nominatim service.
const DefaultDelay = 1100 * time.Millisecond

// Waiter blocks until the next operation may proceed.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Pacer inserts a fixed delay after each cascade. Every Wait blocks for the
// full delay measured from the call, however long the cascade before it took.
type Pacer struct {
	delay time.Duration
}

var _ Waiter = (*Pacer)(nil)

// New creates a Pacer. A non-positive delay disables pacing.
func New(delay time.Duration) *Pacer {
	if delay < 0 {
		delay = 0
	}
	return &Pacer{delay: delay}
}

// Delay returns the configured spacing.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Wait blocks for the delay or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "pacer: wait")
	}
	if p.delay == 0 {
		return nil
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "pacer: wait")
	case <-timer.C:
		return nil
	}
}
