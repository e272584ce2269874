package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUpstream struct {
	server   *httptest.Server
	calls    atomic.Int32
	lastPath string
	lastKey  string
	lastBody map[string]interface{}
}

func newStubUpstream(t *testing.T, status int, body string) *stubUpstream {
	t.Helper()
	stub := &stubUpstream{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		stub.lastPath = r.URL.Path
		stub.lastKey = r.URL.Query().Get("key")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &stub.lastBody)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func newTestService(stub *stubUpstream, apiKey string) *GeminiService {
	return NewGeminiService(stub.server.Client(), stub.server.URL, apiKey, DefaultSettings("gemini-2.5-flash"))
}

func TestGeminiService_Generate_Success(t *testing.T) {
	stub := newStubUpstream(t, http.StatusOK, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "  Hello, "}, {"text": "world!  "}]},
			"finishReason": "STOP"
		}]
	}`)

	reply, err := newTestService(stub, "test-key").Generate(context.Background(), "hi there")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", reply)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestGeminiService_Generate_RequestShape(t *testing.T) {
	stub := newStubUpstream(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)

	_, err := newTestService(stub, "test-key").Generate(context.Background(), "What is Go?")
	require.NoError(t, err)

	assert.Equal(t, "/models/gemini-2.5-flash:generateContent", stub.lastPath)
	assert.Equal(t, "test-key", stub.lastKey)

	contents := stub.lastBody["contents"].([]interface{})
	require.Len(t, contents, 1)
	first := contents[0].(map[string]interface{})
	assert.Equal(t, "user", first["role"])
	parts := first["parts"].([]interface{})
	require.Len(t, parts, 1)
	assert.Equal(t, "What is Go?", parts[0].(map[string]interface{})["text"])

	genCfg := stub.lastBody["generationConfig"].(map[string]interface{})
	assert.InDelta(t, 0.4, genCfg["temperature"], 1e-6)
	assert.Equal(t, float64(512), genCfg["maxOutputTokens"])
}

func TestGeminiService_Generate_UpstreamError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"code":429,"message":"rate limited","status":"RESOURCE_EXHAUSTED"}}`, "rate limited"},
		{"bad request", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid"}}`, "API key not valid"},
		{"no message", http.StatusInternalServerError, `{"error":{"code":500}}`, "unknown error"},
		{"non-json body", http.StatusServiceUnavailable, `<html>down</html>`, "unknown error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStubUpstream(t, tc.status, tc.body)

			_, err := newTestService(stub, "test-key").Generate(context.Background(), "hello")

			var upErr *UpstreamError
			require.True(t, errors.As(err, &upErr), "expected UpstreamError, got %v", err)
			assert.Equal(t, tc.status, upErr.StatusCode)
			assert.Equal(t, tc.wantMessage, upErr.Message)
			assert.Equal(t, tc.body, string(upErr.Payload))
		})
	}
}

func TestGeminiService_Generate_EmptyResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{}`},
		{"empty candidates", `{"candidates":[]}`},
		{"no content", `{"candidates":[{"finishReason":"SAFETY"}]}`},
		{"no parts", `{"candidates":[{"content":{"role":"model"}}]}`},
		{"parts without text", `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`},
		{"whitespace only", `{"candidates":[{"content":{"parts":[{"text":"   \n"}]}}]}`},
		{"error field with malformed candidates", `{"error":{"message":"odd"},"candidates":"not-a-list"}`},
		{"top-level array", `[1,2,3]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStubUpstream(t, http.StatusOK, tc.body)

			_, err := newTestService(stub, "test-key").Generate(context.Background(), "hello")

			var emptyErr *EmptyResponseError
			require.True(t, errors.As(err, &emptyErr), "expected EmptyResponseError, got %v", err)
			assert.Equal(t, tc.body, string(emptyErr.Payload))
		})
	}
}

func TestGeminiService_Generate_InvalidJSON(t *testing.T) {
	stub := newStubUpstream(t, http.StatusOK, `not json`)

	_, err := newTestService(stub, "test-key").Generate(context.Background(), "hello")
	require.Error(t, err)

	var upErr *UpstreamError
	var emptyErr *EmptyResponseError
	assert.False(t, errors.As(err, &upErr))
	assert.False(t, errors.As(err, &emptyErr))
	assert.Contains(t, err.Error(), "failed to parse")

	var badErr *MalformedResponseError
	require.True(t, errors.As(err, &badErr))
	assert.Equal(t, "not json", string(badErr.Payload))
}

func TestGeminiService_Generate_MissingKey(t *testing.T) {
	stub := newStubUpstream(t, http.StatusOK, `{}`)

	_, err := newTestService(stub, "").Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, int32(0), stub.calls.Load())
}

func TestGeminiService_Generate_TransportErrorHidesKey(t *testing.T) {
	stub := newStubUpstream(t, http.StatusOK, `{}`)
	svc := newTestService(stub, "super-secret")
	stub.server.Close()

	_, err := svc.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "super-secret"), "error leaks the API key: %v", err)
}

func TestExtractReply_SkipsMistypedParts(t *testing.T) {
	reply, err := extractReply([]byte(`{"candidates":[{"content":{"parts":[{"text":"a"},{"text":5},{"text":"b"}]}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "ab", reply)
}

func TestExtractReply_UsesFirstCandidateOnly(t *testing.T) {
	reply, err := extractReply([]byte(`{"candidates":[
		{"content":{"parts":[{"text":"first"}]}},
		{"content":{"parts":[{"text":"second"}]}}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, "first", reply)
}

func TestExtractReply_IgnoresMalformedLaterCandidates(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"string candidate", `{"candidates":[{"content":{"parts":[{"text":"hello"}]}},"garbage"]}`},
		{"mistyped content", `{"candidates":[{"content":{"parts":[{"text":"hello"}]}},{"content":7}]}`},
		{"null candidate", `{"candidates":[{"content":{"parts":[{"text":"hello"}]}},null]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reply, err := extractReply([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, "hello", reply)
		})
	}
}

func TestExtractReply_MalformedFirstCandidate(t *testing.T) {
	reply, err := extractReply([]byte(`{"candidates":["garbage",{"content":{"parts":[{"text":"second"}]}}]}`))
	require.NoError(t, err)
	assert.Empty(t, reply)
}
