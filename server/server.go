// Package server exposes the agent over a small HTTP API: health and tool
// introspection plus the chat endpoint. Failures always come back as a
// structured {error, ai_message} payload so a chat UI can render something.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crawlchat/crawlchat/agent"
	"github.com/crawlchat/crawlchat/core"
	"github.com/crawlchat/crawlchat/logging"
)

// Agent is the lifecycle view the gateway needs for health and tool routes.
type Agent interface {
	Ready() bool
	ToolNames() []string
	ToolCount() int
}

// ChatProcessor runs one chat turn.
type ChatProcessor interface {
	Process(ctx context.Context, userInput string, history []agent.HistoryMessage) *core.ChatResult
}

// Options configure the HTTP server.
type Options struct {
	Logger            logging.Logger
	ReadHeaderTimeout time.Duration
}

// Server is the HTTP gateway in front of the agent.
type Server struct {
	httpServer *http.Server
	agent      Agent
	processor  ChatProcessor
	logger     logging.Logger
}

// New builds the gateway listening on addr.
func New(addr string, ag Agent, processor ChatProcessor, optFns ...func(o *Options)) *Server {
	opts := Options{ReadHeaderTimeout: 10 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		agent:     ag,
		processor: processor,
		logger:    logging.OrNoOp(opts.Logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.instrument("/health", s.handleHealth))
	mux.HandleFunc("GET /tools", s.instrument("/tools", s.handleTools))
	mux.HandleFunc("POST /chat", s.instrument("/chat", s.handleChat))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}
	return s
}

// Handler exposes the routing table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// ListenAndServe blocks serving requests until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains connections gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		httpRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "initializing"
	if s.agent.Ready() {
		status = "healthy"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          status,
		"tools_available": s.agent.ToolCount(),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	names := s.agent.ToolNames()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": names})
}

type chatRequest struct {
	Message string                 `json:"message"`
	History []agent.HistoryMessage `json:"history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No data provided"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Empty message"})
		return
	}

	if !s.agent.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":      agent.NotInitializedError,
			"ai_message": agent.NotInitializedNotice,
		})
		return
	}

	result := s.processor.Process(r.Context(), req.Message, req.History)
	chatTurnsTotal.WithLabelValues(outcomeOf(result)).Inc()
	if !result.Success {
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func outcomeOf(result *core.ChatResult) string {
	switch {
	case result.Success:
		return "success"
	case strings.Contains(result.Error, "timed out"):
		return "timeout"
	default:
		return "error"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
