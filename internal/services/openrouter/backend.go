package openrouter

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"testimonials/internal/generation"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Backend sends prompts to OpenRouter's OpenAI-compatible chat endpoint.
type Backend struct {
	client *openai.Client
}

func NewBackend(apiKey, baseURL string, httpClient *http.Client) *Backend {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/")
	if httpClient != nil {
		config.HTTPClient = httpClient
	}

	return &Backend{client: openai.NewClientWithConfig(config)}
}

func (b *Backend) Generate(ctx context.Context, model, prompt string, params generation.Params) generation.Result {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		TopP:        params.TopP,
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return generation.Failed(http.StatusOK, "empty response: no choices returned")
	}

	return generation.Success(resp.Choices[0].Message.Content)
}

func classifyError(err error) generation.Result {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return generation.FromStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.Error()
		if len(reqErr.Body) > 0 {
			msg = string(reqErr.Body)
		}
		return generation.FromStatus(reqErr.HTTPStatusCode, msg)
	}

	return generation.FromStatus(0, err.Error())
}
