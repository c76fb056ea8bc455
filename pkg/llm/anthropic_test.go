package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewAnthropicClient_RequiresKey(t *testing.T) {
	_, err := NewAnthropicClient(&Config{Model: "claude-haiku"}, zap.NewNop())
	assert.Error(t, err)
}

func TestAnthropicClient_GenerateResponse(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"), "path %s", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku",
			"content": [{"type": "text", "text": "{\"priority\": \"high\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 20, "output_tokens": 6}
		}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(&Config{Endpoint: server.URL + "/v1", Model: "claude-haiku", APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)

	resp, err := client.GenerateResponse(context.Background(), "classify", "You classify requirements.", 0.2, true)
	require.NoError(t, err)

	assert.Equal(t, `{"priority": "high"}`, resp.Content)
	assert.Equal(t, 26, resp.TotalTokens)

	system, _ := captured["system"].(string)
	assert.True(t, strings.HasPrefix(system, "You classify requirements."))
	assert.Contains(t, system, jsonOnlyInstruction)
	assert.Equal(t, "claude-haiku", captured["model"])
}
