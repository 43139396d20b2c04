// Package http exposes the engine's selection and session surface over
// JSON. Presentation collaborators consume compiled processes read-only
// from here; transition logic is never re-derived client-side.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/onrampd/onramp"
	"github.com/onrampd/onramp/internal/logging"
	"github.com/onrampd/onramp/internal/runtime"
	"github.com/onrampd/onramp/pkg/domain"
)

// Server handles the HTTP surface over one Engine.
type Server struct {
	engine *onramp.Engine
	logger *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler builds the router for the engine.
func NewHandler(engine *onramp.Engine, opts ...Option) http.Handler {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/processes/selection", s.selection)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.startSession)
		r.Get("/{subjectID}", s.getSession)
		r.Patch("/{subjectID}", s.patchSession)
		r.Delete("/{subjectID}", s.deleteSession)
	})

	return r
}

// selection handles GET /processes/selection?subject_type=&jurisdiction=.
func (s *Server) selection(w http.ResponseWriter, r *http.Request) {
	profile := domain.SubjectProfile{
		SubjectType:  r.URL.Query().Get("subject_type"),
		Jurisdiction: r.URL.Query().Get("jurisdiction"),
	}

	process, err := s.engine.Select(profile)
	if err != nil {
		if errors.Is(err, domain.ErrNoApplicableProcess) {
			http.Error(w, "no applicable process", http.StatusNotFound)
			return
		}
		s.fail(w, "selection failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, process)
}

type startSessionRequest struct {
	SubjectID    string `json:"subject_id,omitempty"`
	SubjectType  string `json:"subject_type"`
	Jurisdiction string `json:"jurisdiction"`
}

// startSession handles POST /sessions.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var body startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	profile := domain.SubjectProfile{SubjectType: body.SubjectType, Jurisdiction: body.Jurisdiction}
	view, err := s.engine.StartSession(r.Context(), body.SubjectID, profile)
	if err != nil {
		if errors.Is(err, domain.ErrNoApplicableProcess) {
			http.Error(w, "no applicable process", http.StatusNotFound)
			return
		}
		s.fail(w, "failed to start session", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, view)
}

// getSession handles GET /sessions/{subjectID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	view, err := s.engine.Session(r.Context(), subjectID)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type patchSessionRequest struct {
	Inputs  map[string]domain.Value `json:"inputs,omitempty"`
	Advance bool                    `json:"advance,omitempty"`
}

// patchSession handles PATCH /sessions/{subjectID}: applies an input patch
// and/or requests an advance. A blocked advance is a normal response
// carrying the missing-fields list, not an error status.
func (s *Server) patchSession(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	var body patchSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.engine.Apply(r.Context(), subjectID, body.Inputs, body.Advance)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// deleteSession handles DELETE /sessions/{subjectID}: explicit reset.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	if err := s.engine.Reset(r.Context(), subjectID); err != nil {
		s.fail(w, "failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionError maps engine errors to status codes. Stale session state is
// a conflict the collaborator must resolve; it is never repaired here.
func (s *Server) sessionError(w http.ResponseWriter, err error) {
	var invalid *domain.InvalidSessionStateError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.As(err, &invalid):
		http.Error(w, invalid.Error(), http.StatusConflict)
	case errors.Is(err, runtime.ErrSessionTerminated):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.fail(w, "session operation failed", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "err", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}
