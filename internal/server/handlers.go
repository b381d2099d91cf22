package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/queue"
)

// submitRequest is the POST /jobs payload.
type submitRequest struct {
	URL         string `json:"url"`
	Dir         string `json:"dir,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
}

// handleSubmitJob queues a new download job.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	id, err := s.manager.Submit(req.URL, req.Dir, queue.SubmitOptions{
		Priority:    req.Priority,
		MaxAttempts: req.MaxAttempts,
	})
	if err != nil {
		if errors.Is(err, queue.ErrStopped) {
			http.Error(w, "job queue is stopped", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, fmt.Sprintf("failed to queue job: %v", err), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleListJobs lists jobs, optionally filtered by ?status=pending,running.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []consts.JobStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := consts.JobStatus(strings.ToLower(strings.TrimSpace(part)))
			if !status.Valid() {
				http.Error(w, fmt.Sprintf("unknown status %q", part), http.StatusBadRequest)
				return
			}
			statuses = append(statuses, status)
		}
	}

	jobs, err := s.manager.List(statuses...)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleGetJob returns one job's persisted state.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	j, hasRow, err := s.store.JobStore().GetJob(id)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !hasRow {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// handleCancelJob requests cancellation of a job.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	_, hasRow, err := s.store.JobStore().GetJob(id)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !hasRow {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	if err := s.manager.Cancel(id); err != nil {
		http.Error(w, fmt.Sprintf("failed to cancel job: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleJobEvents returns the persisted event log for one job.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	_, hasRow, err := s.store.JobStore().GetJob(id)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !hasRow {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	events, err := s.store.EventStore().GetJobEvents(id)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*models.DownloadEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleEventStream streams live job events as server-sent events until the
// client disconnects.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusNotImplemented)
		return
	}

	events, unsubscribe := s.manager.Subscribe(32)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-events:
			if !open {
				return
			}
			body, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", body)
			flusher.Flush()
		}
	}
}

// writeJSON encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode JSON", http.StatusInternalServerError)
	}
}
