// Package resolve turns candidate and origin addresses into coordinates by
// walking an ordered list of lookup strategies until one matches.
package resolve

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/nearby/internal/address"
	"github.com/sells-group/nearby/internal/model"
	"github.com/sells-group/nearby/pkg/geocode"
)

// Strategy is one named attempt in a cascade.
type Strategy struct {
	Name   string
	Lookup func(ctx context.Context) *model.Coordinate
}

// Resolver runs the candidate and origin cascades against a geocode.Client.
type Resolver struct {
	client  geocode.Client
	country address.Country
}

// New creates a Resolver. The country supplies the qualifier appended to
// free-form queries.
func New(client geocode.Client, country address.Country) *Resolver {
	return &Resolver{client: client, country: country}
}

// ResolveCandidate resolves a scraped or imported candidate. Its label is
// tried whole first, since such addresses are noisy single-line strings;
// structured decomposition is the fallback.
func (r *Resolver) ResolveCandidate(ctx context.Context, c model.Candidate) *model.Coordinate {
	return r.run(ctx, "candidate", r.CandidatePlan(c))
}

// ResolveOrigin resolves a user-entered origin. Its fields are already
// discrete, so structured lookups come first.
func (r *Resolver) ResolveOrigin(ctx context.Context, q model.AddressQuery) *model.Coordinate {
	return r.run(ctx, "origin", r.OriginPlan(q))
}

// CandidatePlan lists the strategies ResolveCandidate tries, in order.
// A blank label yields no strategies.
func (r *Resolver) CandidatePlan(c model.Candidate) []Strategy {
	label := strings.TrimSpace(c.Label)
	if label == "" {
		return nil
	}
	a := c.Address.Trimmed()

	plan := []Strategy{r.freeform("full", label)}

	if cleaned := address.Clean(label); cleaned != "" && cleaned != label {
		plan = append(plan, r.freeform("cleaned", cleaned))
	}

	if a.HasLocality() {
		plan = append(plan, r.structured("structured", geocode.StructuredQuery{
			Street:     address.Clean(a.Street),
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
		}))
	}

	if csz := address.JoinNonEmpty(a.City, a.State, a.PostalCode); csz != "" {
		plan = append(plan, r.freeform("city-state-zip", csz))
	}

	if a.City != "" && a.State != "" {
		plan = append(plan, r.freeform("city-state", a.City+", "+a.State))
	}
	return plan
}

// OriginPlan lists the strategies ResolveOrigin tries, in order. An empty
// query yields no strategies.
func (r *Resolver) OriginPlan(q model.AddressQuery) []Strategy {
	a := q.Trimmed()
	if a.IsEmpty() {
		return nil
	}

	plan := []Strategy{r.structured("structured", geocode.StructuredQuery{
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
	})}

	if a.Street != "" && a.HasLocality() {
		plan = append(plan, r.structured("structured-no-street", geocode.StructuredQuery{
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
		}))
	}

	if csz := address.JoinNonEmpty(a.City, a.State, a.PostalCode); csz != "" {
		plan = append(plan, r.freeform("city-state-zip", csz))
	}

	if a.City != "" && a.State != "" {
		plan = append(plan, r.freeform("city-state", a.City+", "+a.State))
	}

	if a.PostalCode != "" {
		plan = append(plan, r.structured("postal-code", geocode.StructuredQuery{PostalCode: a.PostalCode}))
	}

	plan = append(plan, r.freeform("full", a.Freeform()))
	return plan
}

func (r *Resolver) freeform(name, text string) Strategy {
	q := address.EnsureCountryQualifier(text, r.country)
	return Strategy{
		Name: name,
		Lookup: func(ctx context.Context) *model.Coordinate {
			return r.client.LookupFreeform(ctx, q, geocode.FreeformOptions{CountryRestricted: true})
		},
	}
}

func (r *Resolver) structured(name string, sq geocode.StructuredQuery) Strategy {
	return Strategy{
		Name: name,
		Lookup: func(ctx context.Context) *model.Coordinate {
			return r.client.LookupStructured(ctx, sq)
		},
	}
}

// run returns the first non-nil result. A cancelled context stops the walk
// before the next strategy.
func (r *Resolver) run(ctx context.Context, kind string, plan []Strategy) *model.Coordinate {
	for i, s := range plan {
		if ctx.Err() != nil {
			zap.L().Debug("resolve: cancelled",
				zap.String("kind", kind),
				zap.Int("attempted", i),
			)
			return nil
		}
		if coord := s.Lookup(ctx); coord != nil {
			zap.L().Debug("resolve: matched",
				zap.String("kind", kind),
				zap.String("strategy", s.Name),
				zap.Int("attempt", i+1),
			)
			return coord
		}
	}
	if len(plan) > 0 {
		zap.L().Debug("resolve: exhausted", zap.String("kind", kind), zap.Int("attempts", len(plan)))
	}
	return nil
}
