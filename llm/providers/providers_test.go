package providers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamscribe/scribe/llm"
)

func TestRegistration(t *testing.T) {
	for _, name := range []string{"anthropic", "openai", "ollama"} {
		p := llm.GetProvider(name)
		require.NotNil(t, p, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestAnthropicBuildURL(t *testing.T) {
	p := &AnthropicProvider{}
	assert.Equal(t, "https://api.anthropic.com/v1/messages", p.BuildURL(""))
	assert.Equal(t, "https://proxy.internal/v1/messages", p.BuildURL("https://proxy.internal/"))
}

func TestAnthropicHeaders(t *testing.T) {
	p := &AnthropicProvider{}
	req, err := http.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil)
	require.NoError(t, err)

	p.SetHeaders(req, "sk-test")
	assert.Equal(t, "sk-test", req.Header.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, req.Header.Get("anthropic-version"))
}

func TestAnthropicBuildRequestBody(t *testing.T) {
	p := &AnthropicProvider{}
	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", "Return JSON.", "Extract entities.", 2048)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "claude-sonnet-4-20250514", req["model"])
	assert.Equal(t, "Return JSON.", req["system"])
	assert.Equal(t, float64(2048), req["max_tokens"])

	messages := req["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "Extract entities.", msg["content"])
}

func TestAnthropicBuildRequestBody_DefaultMaxTokens(t *testing.T) {
	p := &AnthropicProvider{}
	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", "", "hi", 0)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, float64(4096), req["max_tokens"])
}

func TestAnthropicParseResponse(t *testing.T) {
	raw := `{
		"id": "msg_1",
		"model": "claude-sonnet-4-20250514",
		"stop_reason": "end_turn",
		"content": [
			{"type": "text", "text": "{\"entities\": "},
			{"type": "tool_use", "text": "ignored"},
			{"type": "text", "text": "[]}"}
		],
		"usage": {"input_tokens": 120, "output_tokens": 9}
	}`

	p := &AnthropicProvider{}
	resp, err := p.ParseResponse([]byte(raw), "claude-sonnet-4-20250514")
	require.NoError(t, err)

	assert.Equal(t, `{"entities": []}`, resp.Content)
	assert.Equal(t, "claude-sonnet-4-20250514", resp.Model)
	assert.Equal(t, 120, resp.PromptTokens)
	assert.Equal(t, 9, resp.CompletionTokens)
	assert.Equal(t, "end_turn", resp.FinishReason)
}

func TestOpenAIBuildURL(t *testing.T) {
	p := &OpenAIProvider{}
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", p.BuildURL(""))
	assert.Equal(t, "https://gw.internal/v1/chat/completions", p.BuildURL("https://gw.internal/v1"))
}

func TestOpenAIHeaders(t *testing.T) {
	p := &OpenAIProvider{}
	req, err := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil)
	require.NoError(t, err)

	p.SetHeaders(req, "sk-test")
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
}

func TestOpenAIBuildRequestBody(t *testing.T) {
	p := &OpenAIProvider{}
	body, err := p.BuildRequestBody("gpt-4o", "Return JSON.", "Extract entities.", 1024)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "gpt-4o", req["model"])
	assert.Equal(t, float64(1024), req["max_tokens"])

	rf := req["response_format"].(map[string]any)
	assert.Equal(t, "json_object", rf["type"])

	messages := req["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestOpenAIParseResponse(t *testing.T) {
	raw := `{
		"id": "chatcmpl-1",
		"model": "gpt-4o-2024-08-06",
		"choices": [
			{"message": {"role": "assistant", "content": "{\"entities\": []}"}, "finish_reason": "stop"}
		],
		"usage": {"prompt_tokens": 80, "completion_tokens": 7, "total_tokens": 87}
	}`

	p := &OpenAIProvider{}
	resp, err := p.ParseResponse([]byte(raw), "gpt-4o")
	require.NoError(t, err)

	assert.Equal(t, `{"entities": []}`, resp.Content)
	assert.Equal(t, "gpt-4o-2024-08-06", resp.Model)
	assert.Equal(t, 80, resp.PromptTokens)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestOpenAIParseResponse_NoChoices(t *testing.T) {
	p := &OpenAIProvider{}
	_, err := p.ParseResponse([]byte(`{"choices": []}`), "gpt-4o")
	require.Error(t, err)
}

func TestOllamaBuildURL(t *testing.T) {
	p := &OllamaProvider{}
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", p.BuildURL(""))
	assert.Equal(t, "http://gpu-box:8000/v1/chat/completions", p.BuildURL("http://gpu-box:8000/v1"))
	// Already-complete endpoints pass through unchanged.
	assert.Equal(t, "http://gpu-box:8000/v1/chat/completions", p.BuildURL("http://gpu-box:8000/v1/chat/completions"))
}

func TestOllamaBuildRequestBody_NoResponseFormat(t *testing.T) {
	p := &OllamaProvider{}
	body, err := p.BuildRequestBody("llama3.1", "Return strict JSON.", "Extract entities.", 512)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "llama3.1", req["model"])
	assert.NotContains(t, req, "response_format")

	messages := req["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
}

func TestOllamaParseResponse_FallbackModel(t *testing.T) {
	raw := `{
		"choices": [
			{"message": {"role": "assistant", "content": "{}"}, "finish_reason": "stop"}
		],
		"usage": {"prompt_tokens": 10, "completion_tokens": 2}
	}`

	p := &OllamaProvider{}
	resp, err := p.ParseResponse([]byte(raw), "llama3.1")
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", resp.Model, "empty model field falls back to the requested model")
}
