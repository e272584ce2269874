package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gemini-relay/internal/config"
	"gemini-relay/internal/metrics"
	"gemini-relay/internal/middleware"
	"gemini-relay/internal/models"
	"gemini-relay/internal/services"
)

const (
	InvalidInputReply  = "Please enter a message."
	MisconfiguredReply = "GEMINI_API_KEY is not set on the server."
	EmptyResponseReply = "The model returned no text. Try rephrasing your question."
)

type ChatHandler struct {
	generator services.Generator
	hasKey    bool
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewChatHandler(cfg *config.Config, generator services.Generator, m *metrics.Metrics, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		generator: generator,
		hasKey:    cfg.HasGeminiKey(),
		metrics:   m,
		logger:    logger,
	}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Message = ""
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		h.metrics.ObserveOutcome(metrics.OutcomeInvalidInput)
		writeJSON(w, http.StatusBadRequest, models.ChatResponse{Reply: InvalidInputReply})
		return
	}

	if !h.hasKey {
		h.metrics.ObserveOutcome(metrics.OutcomeMisconfigured)
		writeJSON(w, http.StatusInternalServerError, models.ChatResponse{Reply: MisconfiguredReply})
		return
	}

	start := time.Now()
	reply, err := h.generator.Generate(r.Context(), message)
	h.metrics.ObserveUpstream(upstreamStatus(err), time.Since(start))
	if err != nil {
		h.handleChatError(w, r, err)
		return
	}

	h.metrics.ObserveOutcome(metrics.OutcomeOK)
	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}

func (h *ChatHandler) handleChatError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get(middleware.RequestIDHeader)

	var upErr *services.UpstreamError
	var emptyErr *services.EmptyResponseError
	var badErr *services.MalformedResponseError

	switch {
	case errors.As(err, &upErr):
		h.logger.Error().
			Str("request_id", requestID).
			Int("status", upErr.StatusCode).
			Str("payload", string(upErr.Payload)).
			Msg("gemini API error")
		h.metrics.ObserveOutcome(metrics.OutcomeUpstreamError)
		writeJSON(w, clientStatus(upErr.StatusCode), models.ChatResponse{Reply: upErr.Error()})

	case errors.As(err, &emptyErr):
		h.logger.Error().
			Str("request_id", requestID).
			Int("status", http.StatusBadGateway).
			Str("payload", string(emptyErr.Payload)).
			Msg("gemini empty response")
		h.metrics.ObserveOutcome(metrics.OutcomeEmptyResponse)
		writeJSON(w, http.StatusBadGateway, models.ChatResponse{Reply: EmptyResponseReply})

	case errors.Is(err, services.ErrMissingAPIKey):
		h.metrics.ObserveOutcome(metrics.OutcomeMisconfigured)
		writeJSON(w, http.StatusInternalServerError, models.ChatResponse{Reply: MisconfiguredReply})

	default:
		event := h.logger.Error().
			Err(err).
			Str("request_id", requestID).
			Int("status", http.StatusInternalServerError)
		if errors.As(err, &badErr) {
			event = event.Str("payload", string(badErr.Payload))
		}
		event.Msg("server crash")
		h.metrics.ObserveOutcome(metrics.OutcomeInternalError)
		writeJSON(w, http.StatusInternalServerError, models.ChatResponse{Reply: middleware.InternalErrorReply})
	}
}

// upstreamStatus is the HTTP status the upstream answered with, 0 if unknown.
func upstreamStatus(err error) int {
	var upErr *services.UpstreamError
	var emptyErr *services.EmptyResponseError
	switch {
	case err == nil, errors.As(err, &emptyErr):
		return http.StatusOK
	case errors.As(err, &upErr):
		return upErr.StatusCode
	default:
		return 0
	}
}

// clientStatus forwards the upstream status unless it cannot be written
// back as an HTTP status line.
func clientStatus(status int) int {
	if status < 100 || status > 599 {
		return http.StatusBadGateway
	}
	return status
}
