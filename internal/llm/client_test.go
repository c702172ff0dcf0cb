package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anning01/playlet-clip/internal/config"
)

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:            "test-key",
		BaseURL:           baseURL,
		Model:             "gpt-4o",
		Temperature:       0.3,
		RequestTimeout:    5 * time.Second,
		RequestsPerMinute: 600,
	}
}

func TestChat(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	reply, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "You narrate videos."},
		{Role: RoleUser, Content: "Say hello."},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o", gotBody.Model)
	assert.InDelta(t, 0.3, gotBody.Temperature, 0.0001)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, RoleSystem, gotBody.Messages[0].Role)
}

func TestChatErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)

	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, http.StatusTooManyRequests, llmErr.StatusCode)
	assert.Contains(t, llmErr.Message, "rate limited")
}

func TestChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.Contains(t, llmErr.Message, "empty response")
}

func TestChatMissingAPIKey(t *testing.T) {
	cfg := testConfig("http://localhost:1")
	cfg.APIKey = ""
	client := NewClient(cfg)

	_, err := client.Chat(context.Background(), nil)
	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.Contains(t, llmErr.Message, "API key")
}

func TestChatRateLimitCancellable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RequestsPerMinute = 1
	client := NewClient(cfg)

	// First request consumes the burst.
	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Chat(ctx, []Message{{Role: RoleUser, Content: "again"}})
	require.Error(t, err)

	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.Contains(t, llmErr.Message, "rate limit")
}
