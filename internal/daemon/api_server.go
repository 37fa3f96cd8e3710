package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"caseintake/internal/api"
	"caseintake/internal/config"
	"caseintake/internal/logging"
	"caseintake/internal/preflight"
	"caseintake/internal/services"
)

const maxRequestBody = 4 << 20

type apiServer struct {
	bind    string
	token   string
	logger  *slog.Logger
	daemon  *Daemon
	service *api.IntakeService
	mux     http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		token:   cfg.Paths.APIToken,
		logger:  logging.NewComponentLogger(logger, "api-server"),
		daemon:  d,
		service: d.service,
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/status", srv.handleStatus)
	apiMux.HandleFunc("POST /api/receive", srv.handleReceive)
	apiMux.HandleFunc("GET /api/batches/{id}", srv.handleBatchStatus)
	apiMux.HandleFunc("POST /api/batches/{id}/start", srv.handleBatchStart)
	apiMux.HandleFunc("POST /api/batches/{id}/tick", srv.handleBatchTick)
	apiMux.HandleFunc("POST /api/batches/{id}/reset", srv.handleBatchReset)
	apiMux.HandleFunc("GET /api/orders/{id}/overview", srv.handleOverview)

	root := http.NewServeMux()
	root.Handle("/api/", authMiddleware(srv.token, apiMux))
	root.Handle("GET /metrics", d.metrics.Handler())
	srv.mux = srv.instrument(root)
	return srv
}

func (s *apiServer) handler() http.Handler {
	return s.mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server, listener := s.server, s.listener
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument tags every request with a correlation ID and records metrics.
func (s *apiServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(services.WithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.daemon.metrics.RecordHTTPRequest(r.Method, route, rec.status, time.Since(started))
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:          status.Running,
		PID:              status.PID,
		WorkerID:         status.WorkerID,
		DatabasePath:     status.DatabasePath,
		LockFilePath:     status.LockFilePath,
		SchedulerRunning: status.SchedulerRunning,
		ActiveBatches:    status.ActiveBatches,
		JobStats:         status.JobStats,
	}
	if !status.LastSchedulerRun.IsZero() {
		payload.LastSchedulerRun = status.LastSchedulerRun.UTC().Format(time.RFC3339)
	}
	if status.LastError != nil {
		payload.LastError = status.LastError.Error()
	}
	if r.URL.Query().Get("checks") == "1" {
		for _, c := range preflight.RunAll(r.Context(), s.daemon.cfg, s.daemon.store) {
			payload.Checks = append(payload.Checks, api.CheckResult{Name: c.Name, Passed: c.Passed, Optional: c.Optional, Detail: c.Detail})
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleReceive(w http.ResponseWriter, r *http.Request) {
	var req api.ReceiveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), nil)
		return
	}
	resp, err := s.service.SubmitReceive(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.GetBatchJobStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleBatchStart(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.StartBatchJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	code := http.StatusOK
	if resp.Started {
		code = http.StatusAccepted
	}
	s.writeJSON(w, code, resp)
}

func (s *apiServer) handleBatchTick(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.TickBatchJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleBatchReset(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.ResetBatchJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleOverview(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.GetOrderMovementOverview(r.Context(), r.PathValue("id"), strings.TrimSpace(r.URL.Query().Get("warehouse")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case services.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusForError(err)
	if code >= http.StatusInternalServerError {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.String("route", r.Pattern),
			logging.Int("status", code),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retry; check database health if it persists"),
		)
	}
	s.writeError(w, code, err.Error(), api.FieldErrors(err))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string, fields map[string]string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Fields: fields})
}
