package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppetrov/pairbench/internal/model"
)

func testConfig(baseURL string) model.RemoteConfig {
	return model.RemoteConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
	}
}

func completionBody(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test/model",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
	})
	return body
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": msg, "type": "server_error"},
	})
}

func TestClient_Generate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionBody("  a fine review  "))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), GenerateRequest{
		Model: "test/model", Prompt: "hello", MaxTokens: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "a fine review", text)
}

func TestClient_Generate_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeAPIError(w, http.StatusServiceUnavailable, "overloaded")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionBody("ok"))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Generate_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusTooManyRequests, "rate limited")
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusTooManyRequests, svcErr.StatusCode)
	// MaxRetries=2 means one initial attempt plus two retries
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Generate_TerminalStatusDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusUnauthorized, "bad key")
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusUnauthorized, svcErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Generate_EmptyContentIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionBody("   "))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "p"})
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Contains(t, svcErr.Message, "empty response")
}

func TestClient_Generate_CacheHitSkipsRemoteCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionBody("cached"))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.CacheTTL = time.Minute
	client, err := NewClient(cfg)
	require.NoError(t, err)

	req := GenerateRequest{Model: "m", Prompt: "same prompt", Temperature: 0.3}
	for i := 0; i < 3; i++ {
		text, err := client.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "cached", text)
	}
	assert.Equal(t, int32(1), calls.Load())

	// A different prompt misses the cache
	req.Prompt = "other prompt"
	_, err = client.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Generate_CanceledContextStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusInternalServerError, "boom")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Generate(ctx, GenerateRequest{Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(model.RemoteConfig{})
	var preErr *model.PreconditionError
	assert.ErrorAs(t, err, &preErr)
}

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"rate limit", 429, true},
		{"server error", 500, true},
		{"bad gateway", 502, true},
		{"unavailable", 503, true},
		{"gateway timeout", 504, true},
		{"unauthorized", 401, false},
		{"bad request", 400, false},
		{"not found", 404, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryableStatuses[tt.status])
		})
	}
}
