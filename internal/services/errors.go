package services

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned when a Gemini call is attempted without a credential.
var ErrMissingAPIKey = errors.New("gemini api key is not configured")

// UpstreamError is a non-2xx answer from the Gemini API.
type UpstreamError struct {
	StatusCode int
	Message    string
	Payload    []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Gemini error %d: %s", e.StatusCode, e.Message)
}

// EmptyResponseError is a 2xx answer that carried no usable text.
type EmptyResponseError struct {
	Payload []byte
}

func (e *EmptyResponseError) Error() string { return "gemini returned no text" }

// MalformedResponseError is a 2xx answer whose body is not JSON at all.
type MalformedResponseError struct {
	Payload []byte
}

func (e *MalformedResponseError) Error() string {
	return "failed to parse gemini response: body is not valid JSON"
}
