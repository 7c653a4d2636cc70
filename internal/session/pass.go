package session

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nearby/internal/distance"
	"github.com/sells-group/nearby/internal/model"
	"github.com/sells-group/nearby/internal/ranking"
)

// PassResult summarizes a ranking pass.
type PassResult struct {
	Origin    model.Coordinate  `json:"origin"`
	Total     int               `json:"total"`
	Processed int               `json:"processed"`
	Resolved  int               `json:"resolved"`
	Top       []model.Candidate `json:"top"`
	Cancelled bool              `json:"cancelled"`
	Elapsed   time.Duration     `json:"elapsed"`

	// Err is set only on results delivered by Start.
	Err error `json:"-"`
}

// pass is the state reserved by begin.
type pass struct {
	ctx     context.Context
	cancel  context.CancelFunc
	origin  model.Coordinate
	targets []int
	started time.Time
}

// RunPass resolves every candidate with an address, in ingestion order, and
// records its distance from origin. It fails fast with ErrPassInProgress
// when another pass is running. When ctx is cancelled the candidate being
// looked up is still recorded, the partial result is returned with the
// context error and unvisited candidates keep their prior state. A completed pass switches the view to distance-asc.
func (s *Session) RunPass(ctx context.Context, origin model.Coordinate, progress ProgressFunc) (PassResult, error) {
	p, err := s.begin(ctx, origin)
	if err != nil {
		return PassResult{}, err
	}
	return s.execute(p, progress)
}

// Start launches RunPass in the background and returns immediately. The
// channel receives exactly one result.
func (s *Session) Start(ctx context.Context, origin model.Coordinate, progress ProgressFunc) (<-chan PassResult, error) {
	p, err := s.begin(ctx, origin)
	if err != nil {
		return nil, err
	}
	return s.launch(p, progress), nil
}

// StartFrom claims the session before locating the origin, so a concurrent
// start fails fast with ErrPassInProgress instead of running a second origin
// lookup. The origin is located under ctx and the pass then runs in the
// background under passCtx. The session origin changes only once the pass
// starts.
func (s *Session) StartFrom(ctx, passCtx context.Context, req OriginRequest, progress ProgressFunc) (<-chan PassResult, model.Coordinate, error) {
	if err := s.claim(); err != nil {
		return nil, model.Coordinate{}, err
	}
	origin, err := s.locate(ctx, req)
	if err != nil {
		s.release()
		return nil, model.Coordinate{}, err
	}
	return s.launch(s.prepare(passCtx, origin), progress), origin, nil
}

func (s *Session) launch(p *pass, progress ProgressFunc) <-chan PassResult {
	out := make(chan PassResult, 1)
	go func() {
		defer close(out)
		res, err := s.execute(p, progress)
		res.Err = err
		out <- res
	}()
	return out
}

func (s *Session) begin(ctx context.Context, origin model.Coordinate) (*pass, error) {
	if !origin.Valid() {
		return nil, eris.Wrapf(ErrInvalidOrigin, "%s", origin)
	}
	if err := s.claim(); err != nil {
		return nil, err
	}
	return s.prepare(ctx, origin), nil
}

// prepare turns a claimed slot into a pass.
func (s *Session) prepare(ctx context.Context, origin model.Coordinate) *pass {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make([]int, 0, len(s.candidates))
	for i, c := range s.candidates {
		if strings.TrimSpace(c.Label) != "" {
			targets = append(targets, i)
		}
	}

	pctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.origin = &origin
	s.progress = Progress{Running: true, Total: len(targets)}

	zap.L().Info("session: pass started",
		zap.Stringer("origin", origin),
		zap.Int("candidates", len(targets)),
	)
	return &pass{ctx: pctx, cancel: cancel, origin: origin, targets: targets, started: time.Now()}
}

func (s *Session) execute(p *pass, progress ProgressFunc) (PassResult, error) {
	defer p.cancel()

	res := PassResult{Origin: p.origin, Total: len(p.targets)}

	var stopErr error
	for _, idx := range p.targets {
		if err := p.ctx.Err(); err != nil {
			stopErr = err
			break
		}

		s.mu.Lock()
		c := s.candidates[idx].Clone()
		s.mu.Unlock()

		// A cancel lands between candidates; the lookup in flight finishes.
		coord := s.resolver.ResolveCandidate(context.WithoutCancel(p.ctx), c)

		s.mu.Lock()
		if coord != nil {
			s.candidates[idx].SetResolution(*coord, distance.Between(p.origin, *coord))
			res.Resolved++
		} else {
			s.candidates[idx].ClearResolution()
		}
		res.Processed++
		s.progress.Processed = res.Processed
		s.progress.Current = displayName(c)
		s.mu.Unlock()

		zap.L().Debug("session: candidate visited",
			zap.Int("id", c.ID),
			zap.Bool("resolved", coord != nil),
			zap.Int("processed", res.Processed),
			zap.Int("total", res.Total),
		)
		if progress != nil {
			progress(res.Processed, res.Total, displayName(c))
		}

		if err := s.pacer.Wait(p.ctx); err != nil {
			if ctxErr := p.ctx.Err(); ctxErr != nil {
				stopErr = ctxErr
				break
			}
			zap.L().Warn("session: pacer failed", zap.Error(err))
		}
	}

	res.Elapsed = time.Since(p.started)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.cancel = nil
	s.progress.Running = false

	if stopErr != nil {
		res.Cancelled = true
		res.Top = ranking.TopNearest(s.candidates, s.topK)
		zap.L().Info("session: pass cancelled",
			zap.Int("processed", res.Processed),
			zap.Int("total", res.Total),
		)
		return res, eris.Wrap(stopErr, "session: pass cancelled")
	}

	s.sort = ranking.DistanceAsc
	res.Top = ranking.TopNearest(s.candidates, s.topK)
	zap.L().Info("session: pass finished",
		zap.Int("resolved", res.Resolved),
		zap.Int("total", res.Total),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func displayName(c model.Candidate) string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return c.Label
}
