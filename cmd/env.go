package main

import (
	"net/http"

	"github.com/sells-group/nearby/internal/config"
	"github.com/sells-group/nearby/internal/model"
	"github.com/sells-group/nearby/internal/pacer"
	"github.com/sells-group/nearby/internal/resilience"
	"github.com/sells-group/nearby/internal/resolve"
	"github.com/sells-group/nearby/internal/session"
	"github.com/sells-group/nearby/internal/suggest"
	"github.com/sells-group/nearby/pkg/geocode"
)

// nearbyEnv holds the collaborators shared by every command.
type nearbyEnv struct {
	HTTP      *http.Client
	Geocoder  *geocode.NominatimClient
	Resolver  *resolve.Serial
	Pacer     *pacer.Pacer
	Suggester *suggest.Suggester
	TopK      int
}

// initNearby wires the geocoder, resolver and pacer from configuration. The
// resolver is shared and serial, so cascades from different sessions never
// overlap; each session still waits the pacing delay after its own cascades.
func initNearby(c *config.Config) *nearbyEnv {
	hc := &http.Client{Timeout: c.Geocode.Timeout()}
	country := c.Geocode.Country()
	breaker := resilience.NewBreaker(resilience.FromConfig(
		"nominatim", c.Geocode.BreakerFailures, c.Geocode.BreakerResetSecs))

	gc := geocode.NewClient(
		geocode.WithHTTPClient(hc),
		geocode.WithBaseURL(c.Geocode.BaseURL),
		geocode.WithUserAgent(c.Geocode.UserAgent),
		geocode.WithEmail(c.Geocode.Email),
		geocode.WithCountry(country),
		geocode.WithSuggestionLimit(c.Suggest.Limit),
		geocode.WithCircuitBreaker(breaker),
		geocode.WithRateLimit(c.Geocode.MaxRequestsPerSec),
	)

	return &nearbyEnv{
		HTTP:      hc,
		Geocoder:  gc,
		Resolver:  resolve.NewSerial(resolve.New(gc, country)),
		Pacer:     pacer.New(c.Pacing.Delay()),
		Suggester: suggest.New(gc, c.Suggest.Debounce()),
		TopK:      c.Ranking.TopK,
	}
}

func (e *nearbyEnv) newSession(candidates []model.Candidate) *session.Session {
	return session.New(candidates, e.Resolver, e.Pacer, session.WithTopK(e.TopK))
}
