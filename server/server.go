// Package server is the HTTP boundary: it extracts the payment reference
// from the request header, runs verification exactly once per request,
// maps outcomes to status codes and forwards accepted requests to the
// chat pipeline.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solgate/solgate/chat"
	"github.com/solgate/solgate/logger"
	"github.com/solgate/solgate/types"
)

// PaymentHeader carries the transaction reference proving payment.
const PaymentHeader = "X-Solana-Signature"

// PaymentVerifier is the verification orchestrator's boundary contract.
type PaymentVerifier interface {
	Verify(ctx context.Context, reference string) types.VerificationOutcome
}

type Server struct {
	router    chi.Router
	verifier  PaymentVerifier
	chat      *chat.Client
	moderator chat.Moderator
	log       logger.Logger
}

func New(verifier PaymentVerifier, chatClient *chat.Client, moderator chat.Moderator, log logger.Logger) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if moderator == nil {
		moderator = chat.NoopModerator{}
	}

	s := &Server{
		router:    chi.NewRouter(),
		verifier:  verifier,
		chat:      chatClient,
		moderator: moderator,
		log:       log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestID)
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.With(s.requirePayment).Post("/v1/chat/completions", s.handleChatCompletion)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// requirePayment gates the wrapped handler behind payment verification.
// Verify runs at most once per inbound request; a request that later
// fails downstream has still consumed its payment, which is the
// conservative side of the ledger.
func (s *Server) requirePayment(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reference := r.Header.Get(PaymentHeader)
		if reference == "" {
			writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: "payment_required"})
			return
		}

		outcome := s.verifier.Verify(r.Context(), reference)
		switch {
		case outcome.Authorized():
			next.ServeHTTP(w, r)
		case outcome.Retryable():
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{
				Error:     outcome.Reason,
				Retryable: true,
			})
		default:
			writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: outcome.Reason})
		}
	})
}

func (s *Server) handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request_body"})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "messages_required"})
		return
	}

	if input, ok := chat.LastUserMessage(req.Messages); ok {
		allowed, reason, err := s.moderator.Review(r.Context(), input)
		if err != nil {
			s.log.Error("moderation failed", map[string]any{"error": err.Error()})
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "moderation_unavailable", Retryable: true})
			return
		}
		if !allowed {
			s.log.Warn("request blocked by moderation", map[string]any{"reason": reason})
			writeJSON(w, http.StatusOK, chat.Response{Message: chat.Message{
				Role:    "assistant",
				Content: chat.BlockedMessage,
			}})
			return
		}
	}

	resp, err := s.chat.Complete(r.Context(), &req)
	if err != nil {
		s.log.Error("chat completion failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream_failure", Retryable: true})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
