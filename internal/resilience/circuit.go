// Package resilience guards calls to the geocoding service with a circuit
// breaker and classifies which failures count against it.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is the position of a Breaker.
type State int

const (
	// Closed lets every request through.
	Closed State = iota
	// Open rejects requests until the cool-down elapses.
	Open
	// HalfOpen lets a single probe through.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when a call is rejected without reaching the service.
var ErrOpen = eris.New("resilience: circuit open")

// BreakerConfig controls a Breaker.
type BreakerConfig struct {
	// Name identifies the guarded service in logs.
	Name string

	// Failures is the number of consecutive tripping failures that opens the
	// circuit. Default: 5.
	Failures int

	// Cooldown is how long the circuit stays open before a probe is allowed.
	// Default: 60s.
	Cooldown time.Duration

	// ShouldTrip decides whether an error counts. Defaults to IsTransient, so
	// "no match" answers and caller cancellations never open the circuit.
	ShouldTrip func(err error) bool
}

// DefaultBreakerConfig returns the defaults used for the geocoding service.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:     "nominatim",
		Failures: 5,
		Cooldown: 60 * time.Second,
	}
}

// Breaker is a consecutive-failure circuit breaker for one service.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// NewBreaker creates a closed breaker, filling zero config fields with
// defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Failures <= 0 {
		cfg.Failures = def.Failures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = IsTransient
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Do runs fn unless the circuit is open, and records its outcome.
func Do[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn(ctx)
	}
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State reports the current position, accounting for an elapsed cool-down.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return HalfOpen
	}
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the circuit and clears the failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	b.setState(Closed)
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrOpen
		}
		b.setState(HalfOpen)
		b.probing = true
		return nil
	case HalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasProbe := b.state == HalfOpen
	b.probing = false

	if err == nil || !b.cfg.ShouldTrip(err) {
		if wasProbe {
			b.setState(Closed)
		}
		b.failures = 0
		return
	}

	b.failures++
	if wasProbe || b.failures >= b.cfg.Failures {
		b.openedAt = b.now()
		b.setState(Open)
	}
}

// setState must be called with mu held.
func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	zap.L().Warn("resilience: circuit state change",
		zap.String("service", b.cfg.Name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
}
