package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/plx30080-ctrl/LeadGen/internal/ingest"
	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

// handlePlanRoute builds a route plan for the requested leads. The planner
// bounds its own optimization loop, so a large request degrades to
// best-found-so-far instead of hanging.
func (s *Server) handlePlanRoute(w http.ResponseWriter, r *http.Request) {
	var req model.RoutePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, eris.Wrap(model.ErrValidation, "api: malformed plan request"))
		return
	}

	plan, err := s.planner.Plan(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	plan, err := s.store.GetRoutePlan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if plan == nil {
		writeError(w, eris.Wrapf(model.ErrNotFound, "api: route plan %s", id))
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type batchRequest struct {
	Candidates []model.Candidate `json:"candidates"`
	Async      bool              `json:"async,omitempty"`
}

type asyncAccepted struct {
	JobID string `json:"job_id"`
}

// handleIngestBatch resolves a candidate batch. With async set the batch is
// queued and a job id returned immediately.
func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, eris.Wrap(model.ErrValidation, "api: malformed batch request"))
		return
	}
	if len(req.Candidates) == 0 {
		writeError(w, eris.Wrap(model.ErrValidation, "api: batch has no candidates"))
		return
	}

	if req.Async {
		handle, err := s.queue.Submit(func(ctx context.Context) error {
			_, err := s.resolver.ResolveBatch(ctx, req.Candidates)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, asyncAccepted{JobID: handle.ID})
		return
	}

	result, err := s.resolver.ResolveBatch(r.Context(), req.Candidates)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleIngestCSV accepts a CSV body and resolves it as a batch.
func (s *Server) handleIngestCSV(w http.ResponseWriter, r *http.Request) {
	candidates, err := ingest.ReadCandidatesCSV(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.resolver.ResolveBatch(r.Context(), candidates)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type reviewResolveRequest struct {
	EntityID int64 `json:"entity_id"`
}

type reviewResolved struct {
	EntityID int64 `json:"entity_id"`
}

// handleResolveReview applies a manual winner to a queued ambiguous
// candidate. Omitting entity_id reports the still-unresolved conflict.
func (s *Server) handleResolveReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, eris.Wrap(model.ErrValidation, "api: invalid review id"))
		return
	}
	var req reviewResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, eris.Wrap(model.ErrValidation, "api: malformed review resolution"))
		return
	}
	entityID, err := s.resolver.ResolveReview(r.Context(), id, req.EntityID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewResolved{EntityID: entityID})
}

func (s *Server) handleListReview(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, eris.Wrap(model.ErrValidation, "api: invalid limit"))
			return
		}
		limit = n
	}
	items, err := s.store.ListReview(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
