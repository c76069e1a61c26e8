package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plx30080-ctrl/LeadGen/internal/ingest"
	"github.com/plx30080-ctrl/LeadGen/internal/match"
	"github.com/plx30080-ctrl/LeadGen/internal/model"
	"github.com/plx30080-ctrl/LeadGen/internal/store"
	"github.com/plx30080-ctrl/LeadGen/internal/taskq"
)

// apiStore serves the read endpoints. Unused Store methods panic via the
// embedded nil interface.
type apiStore struct {
	store.Store
	plans   map[string]*model.RoutePlan
	stats   store.Stats
	reviews []store.ReviewItem
}

func newAPIStore() *apiStore {
	return &apiStore{plans: map[string]*model.RoutePlan{}}
}

func (s *apiStore) GetRoutePlan(_ context.Context, id string) (*model.RoutePlan, error) {
	return s.plans[id], nil
}

func (s *apiStore) GetStats(_ context.Context) (*store.Stats, error) {
	return &s.stats, nil
}

func (s *apiStore) ListReview(_ context.Context, limit int) ([]store.ReviewItem, error) {
	if limit < len(s.reviews) {
		return s.reviews[:limit], nil
	}
	return s.reviews, nil
}

func (s *apiStore) GetReview(_ context.Context, id int64) (*store.ReviewItem, error) {
	for _, item := range s.reviews {
		if item.ID == id {
			cp := item
			return &cp, nil
		}
	}
	return nil, nil
}

func newTestServer(t *testing.T, st *apiStore) http.Handler {
	t.Helper()
	queue := taskq.New(1, 4)
	t.Cleanup(queue.Shutdown)
	resolver := ingest.NewResolver(st, match.New(st))
	srv := NewServer(st, resolver, nil, queue)
	return srv.Router()
}

func TestHealth(t *testing.T) {
	router := newTestServer(t, newAPIStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	st := newAPIStore()
	st.stats = store.Stats{Companies: 4, Contacts: 2, JobPostings: 3, Leads: 5}
	router := newTestServer(t, st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ingest/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got store.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, st.stats, got)
}

func TestGetRoute(t *testing.T) {
	st := newAPIStore()
	st.plans["abc"] = &model.RoutePlan{ID: "abc", TotalDistance: 42.5}
	router := newTestServer(t, st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/routes/abc", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.RoutePlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, 42.5, got.TotalDistance)
}

func TestGetRoute_NotFound(t *testing.T) {
	router := newTestServer(t, newAPIStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/routes/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReview(t *testing.T) {
	st := newAPIStore()
	st.reviews = []store.ReviewItem{
		{ID: 1, EntityType: model.CandidateCompany, BestID: 5, RunnerUpID: 9, Score: 0.91},
		{ID: 2, EntityType: model.CandidateCompany, BestID: 3, RunnerUpID: 4, Score: 0.88},
	}
	router := newTestServer(t, st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/review?limit=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []store.ReviewItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestResolveReview_RequiresWinner(t *testing.T) {
	st := newAPIStore()
	st.reviews = []store.ReviewItem{
		{ID: 7, EntityType: model.CandidateCompany, BestID: 5, RunnerUpID: 9, Score: 0.91},
	}
	router := newTestServer(t, st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/review/7/resolve", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResolveReview_UnknownItem(t *testing.T) {
	router := newTestServer(t, newAPIStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/review/404/resolve", strings.NewReader(`{"entity_id":5}`)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveReview_BadID(t *testing.T) {
	router := newTestServer(t, newAPIStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/review/nope/resolve", strings.NewReader(`{"entity_id":5}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListReview_InvalidLimit(t *testing.T) {
	router := newTestServer(t, newAPIStore())

	for _, raw := range []string{"0", "-1", "nope"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/review?limit="+raw, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", raw)
	}
}

func TestIngestBatch_MalformedBody(t *testing.T) {
	router := newTestServer(t, newAPIStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/batch", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestBatch_Empty(t *testing.T) {
	router := newTestServer(t, newAPIStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/batch", strings.NewReader(`{"candidates":[]}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestBatch_InvalidCandidateCountedFailed(t *testing.T) {
	router := newTestServer(t, newAPIStore())

	body := `{"candidates":[{"type":"widget","company_name":"Acme"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/batch", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Failed)
	assert.Empty(t, got.Created)
	assert.NotEmpty(t, got.BatchID)
}

func TestIngestBatch_Async(t *testing.T) {
	router := newTestServer(t, newAPIStore())

	body := `{"candidates":[{"type":"widget","company_name":"Acme"}],"async":true}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/batch", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var got asyncAccepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.JobID)
}

func TestIngestCSV_Malformed(t *testing.T) {
	router := newTestServer(t, newAPIStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/csv", strings.NewReader("")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", eris.Wrap(model.ErrValidation, "bad input"), http.StatusBadRequest},
		{"not found", eris.Wrap(model.ErrNotFound, "missing"), http.StatusNotFound},
		{"ambiguous", eris.Wrap(model.ErrAmbiguousMatch, "near tie"), http.StatusConflict},
		{"external service", eris.Wrap(model.ErrExternalService, "provider down"), http.StatusBadGateway},
		{"geocode failure", eris.Wrap(model.ErrGeocodeFailure, "no match"), http.StatusBadGateway},
		{"unknown", eris.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.want, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body.Error)
			}
		})
	}
}
