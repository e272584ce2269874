package models

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries either the model's answer or a human-readable error.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// HealthResponse reports liveness and configuration status.
type HealthResponse struct {
	OK     bool   `json:"ok"`
	Model  string `json:"model"`
	HasKey bool   `json:"hasKey"`
}
