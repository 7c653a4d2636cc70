package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nearby/internal/address"
	"github.com/sells-group/nearby/internal/model"
	"github.com/sells-group/nearby/internal/resilience"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// place is one element of a Nominatim search response. Coordinates arrive as
// strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p place) coordinate() (model.Coordinate, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(p.Lat), 64)
	if err != nil {
		return model.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(p.Lon), 64)
	if err != nil {
		return model.Coordinate{}, false
	}
	c := model.Coordinate{Latitude: lat, Longitude: lon}
	return c, c.Valid()
}

// LookupFreeform implements Client.
func (c *NominatimClient) LookupFreeform(ctx context.Context, query string, opts FreeformOptions) *model.Coordinate {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}

	params := url.Values{
		"q":              {q},
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"0"},
	}
	if opts.CountryRestricted && c.country.Code != "" {
		params.Set("countrycodes", c.country.Code)
	}
	return c.first(ctx, "freeform", params)
}

// LookupStructured implements Client.
func (c *NominatimClient) LookupStructured(ctx context.Context, sq StructuredQuery) *model.Coordinate {
	if sq.IsEmpty() {
		return nil
	}

	params := url.Values{
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"0"},
	}
	if c.country.Code != "" {
		params.Set("countrycodes", c.country.Code)
	}
	setNonBlank(params, "street", sq.Street)
	setNonBlank(params, "city", sq.City)
	setNonBlank(params, "state", sq.State)
	setNonBlank(params, "postalcode", strings.Join(strings.Fields(sq.PostalCode), ""))
	if c.country.Name != "" {
		params.Set("country", c.country.Name)
	}
	return c.first(ctx, "structured", params)
}

// LookupSuggestions implements Client.
func (c *NominatimClient) LookupSuggestions(ctx context.Context, query string) []model.SuggestionItem {
	q := address.EnsureCountryQualifier(query, c.country)
	if q == "" {
		return nil
	}

	params := url.Values{
		"q":              {q},
		"format":         {"json"},
		"limit":          {strconv.Itoa(c.suggestLimit)},
		"addressdetails": {"0"},
	}
	if c.country.Code != "" {
		params.Set("countrycodes", c.country.Code)
	}

	places, err := c.search(ctx, params)
	if err != nil {
		c.logFailure("suggest", params, err)
		return nil
	}

	items := make([]model.SuggestionItem, 0, len(places))
	for _, p := range places {
		coord, ok := p.coordinate()
		if !ok {
			continue
		}
		items = append(items, model.SuggestionItem{Label: p.DisplayName, Coordinate: coord})
		if len(items) == c.suggestLimit {
			break
		}
	}
	return items
}

func (c *NominatimClient) first(ctx context.Context, kind string, params url.Values) *model.Coordinate {
	places, err := c.search(ctx, params)
	if err != nil {
		c.logFailure(kind, params, err)
		return nil
	}
	if len(places) == 0 {
		zap.L().Debug("geocode: no match", zap.String("kind", kind), zap.String("params", params.Encode()))
		return nil
	}
	coord, ok := places[0].coordinate()
	if !ok {
		zap.L().Debug("geocode: unusable coordinates",
			zap.String("kind", kind),
			zap.String("lat", places[0].Lat),
			zap.String("lon", places[0].Lon),
		)
		return nil
	}
	return &coord
}

// search issues one GET and decodes the result array, after the rate limiter
// and through the breaker when those are configured.
func (c *NominatimClient) search(ctx context.Context, params url.Values) ([]place, error) {
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "geocode: rate limit")
		}
	}
	return resilience.Do(ctx, c.breaker, func(ctx context.Context) ([]place, error) {
		return c.do(ctx, params)
	})
}

func (c *NominatimClient) do(ctx context.Context, params url.Values) ([]place, error) {
	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, eris.Wrap(&resilience.StatusError{Service: "nominatim", StatusCode: resp.StatusCode}, "geocode: search")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var places []place
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	return places, nil
}

func (c *NominatimClient) logFailure(kind string, params url.Values, err error) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("params", params.Encode()),
		zap.Error(err),
	}
	var se *resilience.StatusError
	switch {
	case errors.Is(err, resilience.ErrOpen):
		zap.L().Debug("geocode: skipped, circuit open", fields...)
	case errors.As(err, &se) && se.Transient():
		zap.L().Warn("geocode: service unavailable", fields...)
	default:
		zap.L().Debug("geocode: lookup failed", fields...)
	}
}

func setNonBlank(params url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		params.Set(key, v)
	}
}
