// Package server exposes the gated chat API and the admin surface over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ragfence/ragfence/internal/abuse"
	"github.com/ragfence/ragfence/internal/answer"
	"github.com/ragfence/ragfence/internal/audit"
	"github.com/ragfence/ragfence/internal/config"
	"github.com/ragfence/ragfence/internal/gate"
	"github.com/ragfence/ragfence/internal/responseguard"
	"github.com/ragfence/ragfence/internal/telemetry"
)

const maxRetrievedDocs = 3

// Server wraps the HTTP components of the gateway.
type Server struct {
	mux       *http.ServeMux
	validator *gate.Validator
	monitor   *abuse.Monitor
	emitter   *audit.Emitter
	retriever answer.Retriever
	generator answer.Generator
	tel       *telemetry.Provider
	logger    zerolog.Logger

	httpServer *http.Server
}

// New assembles the server with its collaborators and routes.
func New(validator *gate.Validator, monitor *abuse.Monitor, emitter *audit.Emitter, retriever answer.Retriever, generator answer.Generator, tel *telemetry.Provider, logger zerolog.Logger) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		validator: validator,
		monitor:   monitor,
		emitter:   emitter,
		retriever: retriever,
		generator: generator,
		tel:       tel,
		logger:    logger,
	}

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/v1/chat", s.recovered(s.handleChat))
	s.mux.HandleFunc("/v1/admin/incidents", s.handleAdminIncidents)
	s.mux.HandleFunc("/v1/admin/unblock", s.handleAdminUnblock)
	s.mux.HandleFunc("/v1/admin/sessions/", s.handleAdminSession)

	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start blocks serving HTTP until the context is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context, cfg config.ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.mux,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Answer    string `json:"answer,omitempty"`
	SessionID string `json:"session_id"`
	Error     string `json:"error,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Blocked   bool   `json:"blocked,omitempty"`
}

const (
	msgSessionBlocked = "Your session has been blocked due to repeated security violations. Please contact your administrator."
	msgRateLimited    = "Too many requests. Please wait a moment before asking another question."
	msgInternalError  = "I'm sorry, something went wrong while processing your question. Please try again."
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	if s.monitor.Blocked(req.SessionID) {
		writeJSON(w, http.StatusForbidden, chatResponse{
			SessionID: req.SessionID,
			Error:     msgSessionBlocked,
			Blocked:   true,
		})
		return
	}

	if s.monitor.RateLimited(req.SessionID) {
		inc, blockedNow := s.monitor.RecordIncident(req.SessionID, originOf(r), abuse.CategoryRateLimitExceeded, "request rate over limit")
		s.emitter.Emit(audit.NewEvent(inc, "rate_limited", "", blockedNow))
		s.tel.RecordIncident(string(abuse.CategoryRateLimitExceeded), blockedNow)
		writeJSON(w, http.StatusTooManyRequests, chatResponse{
			SessionID: req.SessionID,
			Error:     msgRateLimited,
			Blocked:   blockedNow,
		})
		return
	}

	s.monitor.RecordRequest(req.SessionID)

	start := time.Now()
	outcome := s.validator.Validate(req.Message)
	durMs := float64(time.Since(start).Microseconds()) / 1000

	if !outcome.Accepted {
		s.tel.RecordRequest(false, string(outcome.Reason), durMs)

		inc, blockedNow := s.monitor.RecordIncident(req.SessionID, originOf(r), outcome.Category, incidentDetails(outcome, req.Message))
		s.emitter.Emit(audit.NewEvent(inc, string(outcome.Reason), outcome.RuleID, blockedNow))
		s.tel.RecordIncident(string(outcome.Category), blockedNow)

		s.logger.Warn().
			Str("session_id", req.SessionID).
			Str("reason", string(outcome.Reason)).
			Str("category", string(outcome.Category)).
			Str("rule_id", outcome.RuleID).
			Bool("blocked_now", blockedNow).
			Msg("query rejected")

		writeJSON(w, http.StatusUnprocessableEntity, chatResponse{
			SessionID: req.SessionID,
			Error:     outcome.Message,
			Reason:    string(outcome.Reason),
			Blocked:   blockedNow,
		})
		return
	}

	s.tel.RecordRequest(true, "", durMs)

	docs, err := s.retriever.Search(r.Context(), req.Message, maxRetrievedDocs)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("retrieval failed")
		writeJSON(w, http.StatusBadGateway, chatResponse{
			SessionID: req.SessionID,
			Error:     msgInternalError,
		})
		return
	}

	prompt := s.validator.SecurePrompt(req.Message, joinDocs(docs))

	raw, err := s.generator.Generate(r.Context(), prompt)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("generation failed")
		writeJSON(w, http.StatusBadGateway, chatResponse{
			SessionID: req.SessionID,
			Error:     msgInternalError,
		})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: req.SessionID,
		Answer:    responseguard.Guard(raw),
	})
}

func (s *Server) handleAdminIncidents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, s.monitor.RecentIncidents(limit))
}

type unblockRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleAdminUnblock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req unblockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	s.monitor.Unblock(req.SessionID)
	s.logger.Info().Str("session_id", req.SessionID).Msg("session unblocked by admin")

	writeJSON(w, http.StatusOK, map[string]string{"status": "unblocked", "session_id": req.SessionID})
}

func (s *Server) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/v1/admin/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	stats, ok := s.monitor.Stats(sessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// recovered converts a handler panic into a recorded incident and a
// fixed fallback response instead of a stack trace.
func (s *Server) recovered(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// The body may not have been decoded yet, so the session is unknown.
			s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
			inc, blockedNow := s.monitor.RecordIncident("unknown", originOf(r), abuse.CategorySuspiciousPattern, "handler panic")
			s.emitter.Emit(audit.NewEvent(inc, "panic", "", blockedNow))
			writeJSON(w, http.StatusInternalServerError, chatResponse{
				SessionID: "unknown",
				Error:     msgInternalError,
			})
		}()
		next(w, r)
	}
}

func incidentDetails(o gate.Outcome, query string) string {
	const max = 200
	q := query
	if len(q) > max {
		q = q[:max]
	}
	if o.RuleID != "" {
		return "rule " + o.RuleID + ": " + q
	}
	return string(o.Reason) + ": " + q
}

func joinDocs(docs []answer.Document) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Title+": "+d.Content)
	}
	return strings.Join(parts, "\n\n")
}

func originOf(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
