// Package http exposes the engine over a small JSON API. No auth, no
// rendering; callers identify the user explicitly and get plain data back.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"budgetpulse/internal/core"
	"budgetpulse/internal/engine"
	applog "budgetpulse/internal/log"
	"budgetpulse/internal/services"
)

type Server struct {
	engine    *engine.Engine
	mutations *services.MutationService
	logger    *applog.Logger
}

// NewServer builds the API server with sane timeouts.
func NewServer(addr string, eng *engine.Engine, mutations *services.MutationService, logger *applog.Logger) *http.Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	s := &Server{engine: eng, mutations: mutations, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/categories/{id}/metric", s.handleCategoryMetric)
	mux.HandleFunc("POST /api/categories", s.handleSaveCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/preview", s.handlePreview)
	mux.HandleFunc("POST /api/allocation/check", s.handleAllocationCheck)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("POST /api/income-sources", s.handleSaveIncomeSource)
	mux.HandleFunc("DELETE /api/income-sources/{id}", s.handleDeleteIncomeSource)
	mux.HandleFunc("POST /api/savings-goals", s.handleSaveSavingsGoal)
	mux.HandleFunc("DELETE /api/savings-goals/{id}", s.handleDeleteSavingsGoal)
	mux.HandleFunc("GET /api/savings-goals/{id}/progress", s.handleGoalProgress)
	mux.HandleFunc("POST /api/savings-goals/{id}/contributions", s.handleRecordContribution)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return &http.Server{
		Addr:           addr,
		Handler:        s.withLogging(mux),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
}

// withLogging records method, path, status and duration for every request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("Request handled",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rec.status,
			applog.FieldDuration, time.Since(start).Milliseconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps core errors to HTTP statuses: unknown ids are 404,
// malformed input is 400, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidLimit),
		errors.Is(err, core.ErrFutureDate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidFrequency):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
