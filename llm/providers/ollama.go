package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/teamscribe/scribe/llm"
)

// OllamaProvider implements the OpenAI-compatible API used by Ollama,
// vLLM and similar local inference servers.
type OllamaProvider struct{}

func init() {
	llm.RegisterProvider(&OllamaProvider{})
}

// Name returns the provider identifier.
func (o *OllamaProvider) Name() string {
	return "ollama"
}

// BuildURL constructs the chat completions endpoint.
func (o *OllamaProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// SetHeaders adds bearer auth when a key is configured. Local Ollama
// ignores it; OpenAI-compatible gateways may require it.
func (o *OllamaProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// BuildRequestBody creates the OpenAI-compatible request body. No JSON
// response mode is requested -- local models commonly reject the option,
// so strict-JSON instructions live in the system prompt instead.
func (o *OllamaProvider) BuildRequestBody(model, systemPrompt, userPrompt string, maxTokens int) ([]byte, error) {
	var messages []openAIMessage
	if systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: userPrompt})

	req := openAIRequest{
		Model:    model,
		Messages: messages,
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}

	return json.Marshal(req)
}

// ParseResponse extracts content from the OpenAI-compatible response.
func (o *OllamaProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse ollama response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ollama response has no choices")
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}

	return &llm.Response{
		Content:          resp.Choices[0].Message.Content,
		Model:            respModel,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		FinishReason:     resp.Choices[0].FinishReason,
	}, nil
}
