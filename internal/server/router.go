// Package server exposes the job queue over HTTP for external observers:
// job submission, control, queries, and a live event stream.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/queue"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// Server handles the control API requests for one queue manager.
type Server struct {
	manager *queue.Manager
	store   contracts.Store
}

// NewRouter returns the control API handler.
func NewRouter(m *queue.Manager, s contracts.Store) http.Handler {
	srv := &Server{manager: m, store: s}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// --- API Routes ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", srv.handleListJobs)
			r.Post("/", srv.handleSubmitJob)
			r.Get("/{id}", srv.handleGetJob)
			r.Delete("/{id}", srv.handleCancelJob)
			r.Get("/{id}/events", srv.handleJobEvents)
		})
		r.Get("/events", srv.handleEventStream)
	})

	return r
}

// Start runs the control API on addr until the context ends, then shuts the
// listener down gracefully.
func Start(ctx context.Context, addr string, m *queue.Manager, s contracts.Store) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(m, s),
		ReadHeaderTimeout: consts.ConnectTimeout,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), consts.ServerShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutCtx); err != nil {
			logging.E("Control API shutdown: %v", err)
		}
	}()

	logging.S("Control API listening on %s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
