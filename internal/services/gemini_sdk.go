package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiSDKService is the Generator backed by the official Go client.
type GeminiSDKService struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	tracer trace.Tracer
}

func NewGeminiSDKService(ctx context.Context, apiKey string, settings GenerationSettings, opts ...option.ClientOption) (*GeminiSDKService, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(settings.Model)
	model.SetTemperature(settings.Temperature)
	model.SetMaxOutputTokens(settings.MaxOutputTokens)

	return &GeminiSDKService{
		client: client,
		model:  model,
		name:   settings.Model,
		tracer: otel.Tracer("gemini-relay/services"),
	}, nil
}

func (s *GeminiSDKService) Close() error {
	return s.client.Close()
}

func (s *GeminiSDKService) Generate(ctx context.Context, message string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "gemini.generateContent",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gemini.model", s.name),
			attribute.String("gemini.transport", "sdk"),
		),
	)
	defer span.End()

	resp, err := s.model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		err = mapSDKError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	reply := extractSDKText(resp)
	if reply == "" {
		return "", &EmptyResponseError{}
	}
	return reply, nil
}

// mapSDKError converts client errors into the relay's error taxonomy.
func mapSDKError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = unknownUpstreamError
		}
		return &UpstreamError{
			StatusCode: apiErr.Code,
			Message:    msg,
			Payload:    []byte(apiErr.Body),
		}
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &EmptyResponseError{Payload: []byte(blocked.Error())}
	}

	return fmt.Errorf("Gemini API error: %w", err)
}

func extractSDKText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return strings.TrimSpace(text.String())
}
