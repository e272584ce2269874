package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gemini-relay/internal/models"
)

const (
	DefaultTemperature     float32 = 0.4
	DefaultMaxOutputTokens int32   = 512

	unknownUpstreamError = "unknown error"
)

// Generator turns a single user message into the model's reply text.
type Generator interface {
	Generate(ctx context.Context, message string) (string, error)
}

// GenerationSettings are the fixed parameters sent with every request.
type GenerationSettings struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

func DefaultSettings(model string) GenerationSettings {
	return GenerationSettings{
		Model:           model,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// GeminiService calls the generateContent REST endpoint directly.
type GeminiService struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	settings   GenerationSettings
	tracer     trace.Tracer
}

func NewGeminiService(httpClient *http.Client, baseURL, apiKey string, settings GenerationSettings) *GeminiService {
	if httpClient == nil {
		// No client timeout: a slow upstream only holds up its own request.
		httpClient = &http.Client{}
	}
	return &GeminiService{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		settings:   settings,
		tracer:     otel.Tracer("gemini-relay/services"),
	}
}

func (s *GeminiService) Generate(ctx context.Context, message string) (string, error) {
	if s.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	ctx, span := s.tracer.Start(ctx, "gemini.generateContent",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("gemini.model", s.settings.Model)),
	)
	defer span.End()

	reply, err := s.generate(ctx, span, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return reply, nil
}

func (s *GeminiService) generate(ctx context.Context, span trace.Span, message string) (string, error) {
	body, err := json.Marshal(buildGenerateRequest(message, s.settings))
	if err != nil {
		return "", fmt.Errorf("failed to encode gemini request: %w", err)
	}

	endpoint, err := s.endpoint()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// *url.Error embeds the full URL, key included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return "", fmt.Errorf("failed to contact gemini API: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamErrorMessage(payload),
			Payload:    payload,
		}
	}

	reply, err := extractReply(payload)
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", &EmptyResponseError{Payload: payload}
	}
	return reply, nil
}

func (s *GeminiService) endpoint() (string, error) {
	u, err := url.Parse(s.baseURL + "/models/" + s.settings.Model + ":generateContent")
	if err != nil {
		return "", fmt.Errorf("invalid gemini base URL: %w", err)
	}
	q := u.Query()
	q.Set("key", s.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func buildGenerateRequest(message string, settings GenerationSettings) models.GenerateContentRequest {
	return models.GenerateContentRequest{
		Contents: []models.GeminiContent{
			{
				Role:  "user",
				Parts: []models.GeminiPart{{Text: message}},
			},
		},
		GenerationConfig: models.GenerationConfig{
			Temperature:     settings.Temperature,
			MaxOutputTokens: settings.MaxOutputTokens,
		},
	}
}

// upstreamErrorMessage pulls error.message out of a failure body, falling
// back to a fixed literal when the body has no usable message.
func upstreamErrorMessage(payload []byte) string {
	var resp models.GenerateContentResponse
	if err := json.Unmarshal(payload, &resp); err != nil || len(resp.Error) == 0 {
		return unknownUpstreamError
	}
	var body models.GeminiErrorBody
	if err := json.Unmarshal(resp.Error, &body); err != nil || body.Message == "" {
		return unknownUpstreamError
	}
	return body.Message
}

// extractReply concatenates the text parts of the first candidate and trims
// the result. Only a body that is not JSON at all is an error; any missing or
// mistyped field below the top level yields an empty reply.
func extractReply(payload []byte) (string, error) {
	if !json.Valid(payload) {
		return "", &MalformedResponseError{Payload: payload}
	}

	var resp models.GenerateContentResponse
	if !decodeOptional(payload, &resp) {
		return "", nil
	}

	// Later candidates are never read, so a malformed one must not matter.
	var candidates []json.RawMessage
	if !decodeOptional(resp.Candidates, &candidates) || len(candidates) == 0 {
		return "", nil
	}

	var first models.GeminiCandidate
	if !decodeOptional(candidates[0], &first) {
		return "", nil
	}

	var content models.GeminiCandidateContent
	if !decodeOptional(first.Content, &content) {
		return "", nil
	}

	var parts []json.RawMessage
	if !decodeOptional(content.Parts, &parts) {
		return "", nil
	}

	var text strings.Builder
	for _, raw := range parts {
		var part models.GeminiResponsePart
		if decodeOptional(raw, &part) && part.Text != nil {
			text.WriteString(*part.Text)
		}
	}
	return strings.TrimSpace(text.String()), nil
}

func decodeOptional(raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
