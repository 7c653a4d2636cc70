package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/nearby/internal/export"
	"github.com/sells-group/nearby/internal/ingest"
	"github.com/sells-group/nearby/internal/model"
	"github.com/sells-group/nearby/internal/ranking"
	"github.com/sells-group/nearby/internal/session"
)

const maxBodyBytes = 8 << 20

type ctxKey struct{}

type createRequest struct {
	Candidates []ingest.Record `json:"candidates"`
}

type createResponse struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Row is one candidate as shown in a list view.
type Row struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	DistanceMiles *float64 `json:"distance_miles"`
	Distance      string   `json:"distance"`
	MapURL        string   `json:"map_url"`
	// Rank is the 1-based position among the nearest candidates, 0 otherwise.
	Rank int `json:"rank,omitempty"`
}

type viewResponse struct {
	Sort   string              `json:"sort"`
	Filter string              `json:"filter"`
	Origin *model.Coordinate   `json:"origin,omitempty"`
	Rows   []Row               `json:"rows"`
	Pass   *session.PassResult `json:"last_pass,omitempty"`
}

type passRequest struct {
	Street string   `json:"street"`
	City   string   `json:"city"`
	State  string   `json:"state"`
	Zip    string   `json:"zip"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
}

type suggestResponse struct {
	Stale bool                   `json:"stale"`
	Items []model.SuggestionItem `json:"items"`
}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookup(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(ctxKey{}).(*session.Session)
	return sess
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	candidates := ingest.ToCandidates(req.Candidates)
	if len(candidates) == 0 {
		writeError(w, http.StatusBadRequest, "no candidates")
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = s.deps.NewSession(candidates)
	s.mu.Unlock()

	zap.L().Info("api: session created", zap.String("session", id), zap.Int("candidates", len(candidates)))
	writeJSON(w, http.StatusCreated, createResponse{ID: id, Count: len(candidates)})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sessionFrom(r).Cancel()

	s.mu.Lock()
	delete(s.sessions, id)
	delete(s.results, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	q := r.URL.Query()
	if q.Has("sort") {
		mode, err := ranking.ParseSortMode(q.Get("sort"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sess.SetSort(mode)
	}
	if q.Has("filter") {
		sess.SetFilter(q.Get("filter"))
	}

	resp := viewResponse{
		Sort:   sess.Sort().String(),
		Filter: sess.Filter(),
		Origin: sess.Origin(),
		Rows:   rows(sess.View(), sess.TopNearest(0)),
	}
	s.mu.RLock()
	resp.Pass = s.results[chi.URLParam(r, "id")]
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	k := s.deps.TopK
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = n
	}
	top := sessionFrom(r).TopNearest(k)
	writeJSON(w, http.StatusOK, rows(top, top))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Progress())
}

func (s *Server) handleStartPass(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := chi.URLParam(r, "id")

	var req passRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	originReq, msg := req.origin()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	results, origin, err := sess.StartFrom(r.Context(), s.base, originReq, nil)
	if err != nil {
		status, msg := startError(err)
		writeError(w, status, msg)
		return
	}

	go func() {
		res, ok := <-results
		if !ok {
			return
		}
		if res.Err != nil {
			zap.L().Info("api: pass ended early", zap.String("session", id), zap.Error(res.Err))
		}
		s.mu.Lock()
		if _, live := s.sessions[id]; live {
			s.results[id] = &res
		}
		s.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"origin": origin,
		"total":  sess.Progress().Total,
	})
}

// origin builds the session request. Explicit coordinates from a chosen
// suggestion win over the address fields. A non-empty message reports a
// malformed request.
func (req passRequest) origin() (session.OriginRequest, string) {
	if req.Lat != nil || req.Lon != nil {
		if req.Lat == nil || req.Lon == nil {
			return session.OriginRequest{}, "lat and lon must be given together"
		}
		return session.OriginRequest{Coordinate: &model.Coordinate{Latitude: *req.Lat, Longitude: *req.Lon}}, ""
	}
	return session.OriginRequest{Address: model.AddressQuery{
		Street: req.Street, City: req.City, State: req.State, PostalCode: req.Zip,
	}}, ""
}

func startError(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrPassInProgress):
		return http.StatusConflict, "a pass is already running"
	case errors.Is(err, session.ErrInvalidOrigin):
		return http.StatusBadRequest, "coordinate out of range"
	case errors.Is(err, session.ErrEmptyOrigin):
		return http.StatusBadRequest, "origin address is empty"
	case errors.Is(err, session.ErrOriginUnresolved):
		return http.StatusUnprocessableEntity, "origin address could not be found"
	default:
		zap.L().Warn("api: start pass", zap.Error(err))
		return http.StatusInternalServerError, "origin lookup failed"
	}
}

func (s *Server) handleCancelPass(w http.ResponseWriter, r *http.Request) {
	if !sessionFrom(r).Cancel() {
		writeError(w, http.StatusNotFound, "no pass is running")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).Reset(); err != nil {
		writeError(w, http.StatusConflict, "a pass is running")
		return
	}
	s.mu.Lock()
	delete(s.results, chi.URLParam(r, "id"))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	client := strings.TrimSpace(q.Get("client"))
	if client == "" {
		client = "default"
	}

	items, fresh := s.suggester(client).Suggest(r.Context(), q.Get("q"))
	if !fresh {
		writeJSON(w, http.StatusOK, suggestResponse{Stale: true, Items: []model.SuggestionItem{}})
		return
	}
	if items == nil {
		items = []model.SuggestionItem{}
	}
	writeJSON(w, http.StatusOK, suggestResponse{Items: items})
}

func rows(candidates, top []model.Candidate) []Row {
	rank := make(map[int]int, len(top))
	for i, c := range top {
		rank[c.ID] = i + 1
	}
	out := make([]Row, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Row{
			ID:            c.ID,
			Name:          c.Name,
			Address:       c.Label,
			DistanceMiles: c.DistanceMiles,
			Distance:      export.FormatMiles(c),
			MapURL:        export.MapsLink(c),
			Rank:          rank[c.ID],
		})
	}
	return out
}
