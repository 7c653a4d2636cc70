package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nearby/internal/model"
	"github.com/sells-group/nearby/internal/pacer"
	"github.com/sells-group/nearby/internal/session"
)

type fakeResolver struct {
	mu          sync.Mutex
	coords      map[string]model.Coordinate
	origin      *model.Coordinate
	originCalls int
	originDelay time.Duration
	active      int
	peak        int
	block       chan struct{}
}

func (f *fakeResolver) ResolveCandidate(ctx context.Context, c model.Candidate) *model.Coordinate {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil
		}
	}
	if coord, ok := f.coords[c.Label]; ok {
		return &coord
	}
	return nil
}

func (f *fakeResolver) ResolveOrigin(_ context.Context, _ model.AddressQuery) *model.Coordinate {
	f.mu.Lock()
	f.originCalls++
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	delay := f.originDelay
	f.mu.Unlock()

	time.Sleep(delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	return f.origin
}

type fakeSuggestions struct {
	calls atomic.Int32
}

func (f *fakeSuggestions) LookupSuggestions(_ context.Context, query string) []model.SuggestionItem {
	f.calls.Add(1)
	return []model.SuggestionItem{{Label: query + ", USA", Coordinate: model.Coordinate{Latitude: 1, Longitude: 2}}}
}

var springfield = model.Coordinate{Latitude: 39.7817, Longitude: -89.6501}

func newResolver() *fakeResolver {
	return &fakeResolver{
		origin: &springfield,
		coords: map[string]model.Coordinate{
			"1 Far Rd, Chicago, IL":      {Latitude: 41.8781, Longitude: -87.6298},
			"2 Near St, Springfield, IL": {Latitude: 39.8, Longitude: -89.65},
		},
	}
}

func newTestServer(t *testing.T, res *fakeResolver, sugg *fakeSuggestions, debounce time.Duration) *httptest.Server {
	t.Helper()
	if sugg == nil {
		sugg = &fakeSuggestions{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s := New(ctx, Deps{
		NewSession: func(cs []model.Candidate) *session.Session {
			return session.New(cs, res, pacer.New(0))
		},
		Suggestions: sugg,
		Debounce:    debounce,
	})
	ts := httptest.NewServer(s.Handler(nil))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, body := do(t, http.MethodPost, ts.URL+"/sessions", map[string]interface{}{
		"candidates": []map[string]string{
			{"name": "Far", "street": "1 Far Rd", "city": "Chicago", "state": "IL"},
			{"name": "Near", "street": "2 Near St", "city": "Springfield", "state": "IL"},
			{"name": "Nowhere"},
			{},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out createResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 3, out.Count)
	_, err := uuid.Parse(out.ID)
	require.NoError(t, err)
	return out.ID
}

func waitIdle(t *testing.T, ts *httptest.Server, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, body := do(t, http.MethodGet, ts.URL+"/sessions/"+id+"/progress", nil)
		var p session.Progress
		return json.Unmarshal(body, &p) == nil && !p.Running
	}, 2*time.Second, 10*time.Millisecond)
}

func getView(t *testing.T, url string) viewResponse {
	t.Helper()
	resp, body := do(t, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var v viewResponse
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, newResolver(), nil, 0)
	resp, body := do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestCreateSession_Invalid(t *testing.T) {
	ts := newTestServer(t, newResolver(), nil, 0)

	tests := []struct {
		name string
		body interface{}
	}{
		{"not an object", []int{1}},
		{"no candidates", map[string]interface{}{"candidates": []map[string]string{{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, ts.URL+"/sessions", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), `"error"`)
		})
	}
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t, newResolver(), nil, 0)
	resp, body := do(t, http.MethodGet, ts.URL+"/sessions/missing/view", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"session not found"}`, string(body))
}

func TestPass_ByAddress(t *testing.T) {
	res := newResolver()
	ts := newTestServer(t, res, nil, 0)
	id := createSession(t, ts)

	resp, body := do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/passes",
		map[string]string{"city": "Springfield", "state": "IL"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	waitIdle(t, ts, id)

	v := getView(t, ts.URL+"/sessions/"+id+"/view")
	assert.Equal(t, "distance-asc", v.Sort)
	require.NotNil(t, v.Origin)
	assert.Equal(t, springfield, *v.Origin)
	require.Len(t, v.Rows, 3)
	assert.Equal(t, "Near", v.Rows[0].Name)
	assert.Equal(t, 1, v.Rows[0].Rank)
	assert.Equal(t, "Far", v.Rows[1].Name)
	assert.Equal(t, 2, v.Rows[1].Rank)
	assert.Equal(t, "Nowhere", v.Rows[2].Name)
	assert.Nil(t, v.Rows[2].DistanceMiles)
	assert.Equal(t, "-", v.Rows[2].Distance)
	assert.Contains(t, v.Rows[0].MapURL, "https://www.google.com/maps/place/")

	require.NotNil(t, v.Pass)
	assert.Equal(t, 3, v.Pass.Total)
	assert.Equal(t, 2, v.Pass.Resolved)
	assert.False(t, v.Pass.Cancelled)
}

func TestPass_ByCoordinate(t *testing.T) {
	res := newResolver()
	ts := newTestServer(t, res, nil, 0)
	id := createSession(t, ts)

	resp, _ := do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/passes",
		map[string]interface{}{"lat": 41.88, "lon": -87.63, "city": "ignored"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	waitIdle(t, ts, id)

	res.mu.Lock()
	assert.Equal(t, 0, res.originCalls)
	res.mu.Unlock()

	v := getView(t, ts.URL+"/sessions/"+id+"/view")
	assert.Equal(t, "Far", v.Rows[0].Name)
}

func TestPass_OriginErrors(t *testing.T) {
	res := newResolver()
	res.origin = nil
	ts := newTestServer(t, res, nil, 0)
	id := createSession(t, ts)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"unresolved", map[string]string{"city": "Atlantis"}, http.StatusUnprocessableEntity},
		{"empty", map[string]string{"street": "  "}, http.StatusBadRequest},
		{"lat without lon", map[string]float64{"lat": 1}, http.StatusBadRequest},
		{"out of range", map[string]float64{"lat": 91, "lon": 0}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/passes", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}

	v := getView(t, ts.URL+"/sessions/"+id+"/view")
	assert.Nil(t, v.Origin)
	assert.Nil(t, v.Pass)
}

func TestPass_ConflictCancelReset(t *testing.T) {
	res := newResolver()
	res.block = make(chan struct{})
	ts := newTestServer(t, res, nil, 0)
	id := createSession(t, ts)
	base := ts.URL + "/sessions/" + id

	resp, _ := do(t, http.MethodPost, base+"/passes", map[string]float64{"lat": 39.78, "lon": -89.65})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/passes", map[string]float64{"lat": 39.78, "lon": -89.65})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/reset", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, base+"/passes/current", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	// The lookup in flight finishes; nothing after it runs.
	close(res.block)
	waitIdle(t, ts, id)

	v := getView(t, base+"/view")
	assert.Equal(t, "name-asc", v.Sort)
	require.Len(t, v.Rows, 3)
	assert.Equal(t, "Near", v.Rows[1].Name)
	assert.Nil(t, v.Rows[1].DistanceMiles)
	require.Eventually(t, func() bool {
		v := getView(t, base+"/view")
		return v.Pass != nil && v.Pass.Cancelled
	}, time.Second, 10*time.Millisecond)

	resp, _ = do(t, http.MethodDelete, base+"/passes/current", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/reset", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	v = getView(t, base+"/view")
	assert.Nil(t, v.Pass)
	assert.Nil(t, v.Origin)
}

func TestPass_ConcurrentStartsRunOneOriginLookup(t *testing.T) {
	res := newResolver()
	res.originDelay = 100 * time.Millisecond
	res.block = make(chan struct{})
	ts := newTestServer(t, res, nil, 0)
	id := createSession(t, ts)
	base := ts.URL + "/sessions/" + id

	starts := []map[string]string{
		{"city": "Springfield", "state": "IL"},
		{"city": "Chicago", "state": "IL"},
	}
	statuses := make([]int, len(starts))
	var wg sync.WaitGroup
	for i, body := range starts {
		wg.Add(1)
		go func(i int, body map[string]string) {
			defer wg.Done()
			raw, _ := json.Marshal(body)
			resp, err := http.Post(base+"/passes", "application/json", bytes.NewReader(raw))
			if err != nil {
				return
			}
			resp.Body.Close() //nolint:errcheck
			statuses[i] = resp.StatusCode
		}(i, body)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusAccepted, http.StatusConflict}, statuses)
	res.mu.Lock()
	assert.Equal(t, 1, res.originCalls)
	assert.Equal(t, 1, res.peak)
	res.mu.Unlock()

	v := getView(t, base+"/view")
	require.NotNil(t, v.Origin)
	assert.Equal(t, springfield, *v.Origin)

	close(res.block)
	waitIdle(t, ts, id)
}

func TestPass_RejectedStartKeepsOrigin(t *testing.T) {
	res := newResolver()
	res.block = make(chan struct{})
	ts := newTestServer(t, res, nil, 0)
	id := createSession(t, ts)
	base := ts.URL + "/sessions/" + id

	resp, _ := do(t, http.MethodPost, base+"/passes", map[string]float64{"lat": 39.78, "lon": -89.65})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/passes", map[string]float64{"lat": 41.88, "lon": -87.63})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	v := getView(t, base+"/view")
	require.NotNil(t, v.Origin)
	assert.Equal(t, model.Coordinate{Latitude: 39.78, Longitude: -89.65}, *v.Origin)

	close(res.block)
	waitIdle(t, ts, id)
}

func TestView_SortAndFilter(t *testing.T) {
	ts := newTestServer(t, newResolver(), nil, 0)
	id := createSession(t, ts)
	base := ts.URL + "/sessions/" + id

	v := getView(t, base+"/view?sort=name-desc")
	require.Len(t, v.Rows, 3)
	assert.Equal(t, []string{"Nowhere", "Near", "Far"}, names(v.Rows))

	v = getView(t, base+"/view?filter=SPRING")
	assert.Equal(t, "name-desc", v.Sort)
	assert.Equal(t, []string{"Near"}, names(v.Rows))

	v = getView(t, base+"/view?filter=")
	assert.Len(t, v.Rows, 3)

	resp, body := do(t, http.MethodGet, base+"/view?sort=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "unknown sort")
}

func TestTop(t *testing.T) {
	ts := newTestServer(t, newResolver(), nil, 0)
	id := createSession(t, ts)
	base := ts.URL + "/sessions/" + id

	resp, _ := do(t, http.MethodPost, base+"/passes", map[string]float64{"lat": 39.78, "lon": -89.65})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	waitIdle(t, ts, id)

	resp, body := do(t, http.MethodGet, base+"/top?k=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var top []Row
	require.NoError(t, json.Unmarshal(body, &top))
	require.Len(t, top, 1)
	assert.Equal(t, "Near", top[0].Name)

	resp, _ = do(t, http.MethodGet, base+"/top?k=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t, newResolver(), nil, 0)
	id := createSession(t, ts)

	resp, _ := do(t, http.MethodDelete, ts.URL+"/sessions/"+id+"/", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/sessions/"+id+"/progress", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSuggest(t *testing.T) {
	sugg := &fakeSuggestions{}
	ts := newTestServer(t, newResolver(), sugg, 0)

	resp, body := do(t, http.MethodGet, ts.URL+"/suggest?q=Springfield", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out suggestResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.Stale)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Springfield, USA", out.Items[0].Label)

	resp, body = do(t, http.MethodGet, ts.URL+"/suggest?q=", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"stale":false,"items":[]}`, string(body))
	assert.Equal(t, int32(1), sugg.calls.Load())
}

func TestSuggest_Superseded(t *testing.T) {
	sugg := &fakeSuggestions{}
	ts := newTestServer(t, newResolver(), sugg, 200*time.Millisecond)

	first := make(chan suggestResponse, 1)
	go func() {
		var out suggestResponse
		resp, err := http.Get(ts.URL + "/suggest?q=Spr&client=a")
		if err == nil {
			_ = json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close() //nolint:errcheck
		}
		first <- out
	}()
	time.Sleep(50 * time.Millisecond)

	_, body := do(t, http.MethodGet, ts.URL+"/suggest?q=Springf&client=a", nil)
	var second suggestResponse
	require.NoError(t, json.Unmarshal(body, &second))
	assert.False(t, second.Stale)
	require.Len(t, second.Items, 1)

	out := <-first
	assert.True(t, out.Stale)
	assert.Empty(t, out.Items)
	assert.Equal(t, int32(1), sugg.calls.Load())
}

func names(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}
