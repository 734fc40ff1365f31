package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/expertpanel"
	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/expert"
	"github.com/hupe1980/expertpanel/graph"
	"github.com/hupe1980/expertpanel/logging"
	"github.com/hupe1980/expertpanel/provider"
)

// Asker answers panel requests. *expertpanel.Panel implements it.
type Asker interface {
	Ask(ctx context.Context, req expertpanel.Request) (*expertpanel.Reply, error)
}

// Options configures a Server.
type Options struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	Logger          logging.Logger
}

// Server serves the HTTP API.
type Server struct {
	panel Asker
	opts  Options
}

// NewServer creates a Server for panel.
func NewServer(panel Asker, optFns ...func(o *Options)) *Server {
	opts := Options{
		Address:         ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Server{panel: panel, opts: opts}
}

// ChatRequest is the body of both POST routes.
type ChatRequest struct {
	Messages  []core.Message             `json:"messages"`
	Model     string                     `json:"model,omitempty"`
	Providers map[string]provider.Config `json:"providers,omitempty"`
	SessionID string                     `json:"sessionId,omitempty"`
}

// ChatResponse is the success body of both POST routes.
type ChatResponse struct {
	Reply     string                 `json:"reply"`
	SessionID string                 `json:"sessionId"`
	Experts   []graph.ExpertResponse `json:"experts,omitempty"`
}

// ErrorResponse is the failure body.
type ErrorResponse struct {
	Error     string        `json:"error"`
	Category  core.Category `json:"category"`
	Retryable bool          `json:"retryable"`
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleAsk(expertpanel.ModeChat))
	mux.HandleFunc("POST /api/panel", s.handleAsk(expertpanel.ModePanel))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withLogging(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Address,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.opts.Logger.Info("api server listening", "address", s.opts.Address)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.opts.Logger.Warn("api server shutdown incomplete", "error", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleAsk(mode expertpanel.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ChatRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)).Decode(&body); err != nil {
			writeError(w, core.NewInputError("request body must be JSON with a non-empty messages array: %v", err))
			return
		}

		req := expertpanel.Request{
			Messages:  body.Messages,
			Mode:      mode,
			Model:     body.Model,
			SessionID: body.SessionID,
		}
		if len(body.Providers) > 0 {
			req.Providers = make(map[expert.Key]provider.Config, len(body.Providers))
			for role, cfg := range body.Providers {
				cfg.Kind = cfg.Kind.Normalize()
				req.Providers[expert.Key(strings.ToUpper(role))] = cfg
			}
		}

		reply, err := s.panel.Ask(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ChatResponse{
			Reply:     reply.Text,
			SessionID: reply.SessionID,
			Experts:   reply.ExpertResponses,
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	var pe *core.ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case core.ProviderErrRateLimit:
			return http.StatusTooManyRequests
		case core.ProviderErrNetwork:
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}
	switch core.CategoryOf(err) {
	case core.CategoryInput:
		return http.StatusBadRequest
	case core.CategoryTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), ErrorResponse{
		Error:     core.UserMessage(err),
		Category:  core.CategoryOf(err),
		Retryable: core.IsRetryable(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.opts.Logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// withContext rejects requests once the root context is cancelled.
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
