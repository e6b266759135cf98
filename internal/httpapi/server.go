// Package httpapi exposes the assistant over HTTP and WebSocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spigell/navihire/internal/assistant"
	"github.com/spigell/navihire/internal/flights"
	"github.com/spigell/navihire/internal/session"
	"github.com/spigell/navihire/internal/workflow"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Assistant is the conversation service the handlers call.
type Assistant interface {
	Handle(ctx context.Context, req assistant.Request) (*assistant.Reply, error)
	History(ctx context.Context, sessionID string) ([]workflow.Message, error)
	Reset(ctx context.Context, sessionID string) error
}

type Server struct {
	assistant Assistant
	flights   flights.Searcher
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
	now       func() time.Time

	// pongWait is how long a websocket may stay silent.
	pongWait time.Duration
}

type Option func(*Server)

func WithFlights(s flights.Searcher) Option {
	return func(srv *Server) {
		srv.flights = s
	}
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(srv *Server) {
		srv.gatherer = g
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}

func NewServer(a Assistant, opts ...Option) *Server {
	s := &Server{
		assistant: a,
		logger:    zap.NewNop(),
		now:       time.Now,
		pongWait:  defaultPongWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/api/health", s.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", s.chat)
		r.Get("/sessions/{sessionID}", s.history)
		r.Delete("/sessions/{sessionID}", s.reset)
		r.Post("/resumes/upload", s.uploadResumes)
		if s.flights != nil {
			r.Post("/flights/search", s.searchFlights)
		}
	})
	r.Get("/ws/chat/{userID}", s.chatSocket)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"message":   "NaviHire API is running",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.assistant.Handle(r.Context(), req)
	if err != nil {
		s.fail(w, "chat turn failed", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	messages, err := s.assistant.History(r.Context(), id)
	if err != nil {
		s.fail(w, "history lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "messages": messages})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if err := s.assistant.Reset(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.fail(w, "session reset failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps service errors to status codes.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, flights.ErrNoFlights):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
