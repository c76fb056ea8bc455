package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(&Config{Model: "llama3.1"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClient(&Config{Endpoint: "http://localhost:11434/v1"}, zap.NewNop())
	assert.Error(t, err)
}

func TestClient_GenerateResponse_JSONMode(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "llama3.1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"category\": \"technical\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(&Config{Endpoint: server.URL + "/v1/", Model: "llama3.1"}, zap.NewNop())
	require.NoError(t, err)

	resp, err := client.GenerateResponse(context.Background(), "classify this", "you are an analyst", 0.1, true)
	require.NoError(t, err)

	assert.Equal(t, `{"category": "technical"}`, resp.Content)
	assert.Equal(t, 17, resp.TotalTokens)

	assert.Equal(t, "llama3.1", captured["model"])
	format, ok := captured["response_format"].(map[string]any)
	require.True(t, ok, "response_format should be sent in JSON mode")
	assert.Equal(t, "json_object", format["type"])

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "classify this", messages[1].(map[string]any)["content"])
}

func TestClient_GenerateResponse_TextModeOmitsResponseFormat(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(&Config{Endpoint: server.URL, Model: "m"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "p", "s", 0, false)
	require.NoError(t, err)
	_, present := captured["response_format"]
	assert.False(t, present)
}

func TestClient_GenerateResponse_ClassifiesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "loading model", "type": "server_error"}}`))
	}))
	defer server.Close()

	client, err := NewClient(&Config{Endpoint: server.URL, Model: "llama3.1"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "p", "s", 0, true)
	require.Error(t, err)

	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, 503, llmErr.StatusCode)
	assert.True(t, llmErr.Retryable)
	assert.Equal(t, "llama3.1", llmErr.Model)
}

func TestClient_GenerateResponse_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client, err := NewClient(&Config{Endpoint: server.URL, Model: "m"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "p", "s", 0, true)
	assert.Equal(t, ErrorTypeParse, GetErrorType(err))
}
