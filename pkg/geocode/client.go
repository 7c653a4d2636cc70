// Package geocode resolves addresses to coordinates through the Nominatim
// search API. Lookups never return errors: any failure is an absent result.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/nearby/internal/address"
	"github.com/sells-group/nearby/internal/model"
	"github.com/sells-group/nearby/internal/resilience"
)

// DefaultBaseURL is the public Nominatim search endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

// DefaultUserAgent identifies the client per the Nominatim usage policy.
const DefaultUserAgent = "nearby-cli/1.0"

// DefaultSuggestionLimit caps LookupSuggestions results.
const DefaultSuggestionLimit = 5

// Client resolves addresses. Every method issues at most one request.
type Client interface {
	// LookupFreeform resolves a single free-form query string.
	LookupFreeform(ctx context.Context, query string, opts FreeformOptions) *model.Coordinate

	// LookupStructured resolves the non-blank fields of q.
	LookupStructured(ctx context.Context, q StructuredQuery) *model.Coordinate

	// LookupSuggestions returns up to the configured number of matches for a
	// partial query, in the service's order.
	LookupSuggestions(ctx context.Context, query string) []model.SuggestionItem
}

// FreeformOptions tunes a free-form lookup.
type FreeformOptions struct {
	// CountryRestricted adds the countrycodes filter.
	CountryRestricted bool
}

// StructuredQuery is a field-by-field lookup. Blank fields are omitted.
type StructuredQuery struct {
	Street     string
	City       string
	State      string
	PostalCode string
}

// IsEmpty reports whether every field is blank.
func (q StructuredQuery) IsEmpty() bool {
	return strings.TrimSpace(q.Street) == "" &&
		strings.TrimSpace(q.City) == "" &&
		strings.TrimSpace(q.State) == "" &&
		strings.TrimSpace(q.PostalCode) == ""
}

// Option configures a NominatimClient.
type Option func(*NominatimClient)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *NominatimClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL points the client at a different search endpoint.
func WithBaseURL(u string) Option {
	return func(c *NominatimClient) {
		if u = strings.TrimSpace(u); u != "" {
			c.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *NominatimClient) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithEmail adds the email parameter Nominatim asks heavy users to send.
func WithEmail(email string) Option {
	return func(c *NominatimClient) {
		c.email = strings.TrimSpace(email)
	}
}

// WithCountry sets the country restriction.
func WithCountry(country address.Country) Option {
	return func(c *NominatimClient) {
		c.country = country
	}
}

// WithSuggestionLimit overrides DefaultSuggestionLimit.
func WithSuggestionLimit(n int) Option {
	return func(c *NominatimClient) {
		if n > 0 {
			c.suggestLimit = n
		}
	}
}

// WithCircuitBreaker guards requests with b. While the circuit is open,
// lookups return nothing without touching the network.
func WithCircuitBreaker(b *resilience.Breaker) Option {
	return func(c *NominatimClient) {
		c.breaker = b
	}
}

// WithRateLimit caps outgoing requests at rps per second across every
// caller sharing the client. A non-positive rps leaves requests unthrottled.
func WithRateLimit(rps float64) Option {
	return func(c *NominatimClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// NominatimClient is the Client backed by a Nominatim search endpoint.
type NominatimClient struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	email        string
	country      address.Country
	suggestLimit int
	breaker      *resilience.Breaker
	limiter      *rate.Limiter
}

var _ Client = (*NominatimClient)(nil)

// NewClient creates a NominatimClient restricted to the US by default.
func NewClient(opts ...Option) *NominatimClient {
	c := &NominatimClient{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		baseURL:      DefaultBaseURL,
		userAgent:    DefaultUserAgent,
		country:      address.US,
		suggestLimit: DefaultSuggestionLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Country returns the configured restriction.
func (c *NominatimClient) Country() address.Country {
	return c.country
}
