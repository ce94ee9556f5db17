package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"testimonials/internal/generation"
)

// Backend calls Gemini generateContent through the GenAI SDK.
type Backend struct {
	client *genai.Client
}

// NewBackend creates a Gemini API client. baseURL overrides the endpoint,
// for tests.
func NewBackend(ctx context.Context, apiKey, baseURL string) (*Backend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Backend{client: client}, nil
}

func (b *Backend) Generate(ctx context.Context, model, prompt string, params generation.Params) generation.Result {
	temperature := params.Temperature
	topP := params.TopP
	topK := float32(params.TopK)

	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		TopP:            &topP,
		TopK:            &topK,
		MaxOutputTokens: int32(params.MaxTokens),
	}

	resp, err := b.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return classifyError(err)
	}

	text := resp.Text()
	if text == "" {
		reason := "no candidates"
		if len(resp.Candidates) > 0 {
			reason = fmt.Sprintf("finish reason %s", resp.Candidates[0].FinishReason)
		}
		return generation.Failed(http.StatusOK, "empty response: "+reason)
	}
	return generation.Success(text)
}

func classifyError(err error) generation.Result {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if apiErr.Status != "" {
			msg = apiErr.Status + ": " + msg
		}
		return generation.FromStatus(apiErr.Code, msg)
	}
	return generation.FromStatus(0, err.Error())
}
