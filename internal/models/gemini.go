package models

import "encoding/json"

// Outbound generateContent payload.

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiContent struct {
	Role  string       `json:"role"`
	Parts []GeminiPart `json:"parts"`
}

type GenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int32   `json:"maxOutputTokens"`
}

type GenerateContentRequest struct {
	Contents         []GeminiContent  `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// Inbound generateContent payload. Every level is kept raw so a missing or
// mistyped field can be skipped without failing the whole decode.

type GenerateContentResponse struct {
	Candidates json.RawMessage `json:"candidates"`
	Error      json.RawMessage `json:"error"`
}

type GeminiCandidate struct {
	Content json.RawMessage `json:"content"`
}

type GeminiCandidateContent struct {
	Parts json.RawMessage `json:"parts"`
}

type GeminiResponsePart struct {
	Text *string `json:"text"`
}

// GeminiErrorBody is the "error" object Google APIs return on failure.
type GeminiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
