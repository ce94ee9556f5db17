package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"testimonials/internal/generation"
)

func TestNewBackendRequiresKey(t *testing.T) {
	_, err := NewBackend(context.Background(), "", "")
	assert.Error(t, err)
}

func TestGenerateSendsSamplingConfig(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Ekdum first class quality hai bhai!"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	b, err := NewBackend(context.Background(), "test-key", srv.URL+"/")
	require.NoError(t, err)

	res := b.Generate(context.Background(), "gemini-2.0-flash", "prompt", generation.DefaultParams)

	assert.Equal(t, generation.KindSuccess, res.Kind, res.Message)
	assert.Equal(t, "Ekdum first class quality hai bhai!", res.Text)

	cfg, ok := body["generationConfig"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 200, cfg["maxOutputTokens"])
	assert.EqualValues(t, 40, cfg["topK"])
	assert.InDelta(t, 0.9, cfg["temperature"], 0.0001)
	assert.InDelta(t, 0.95, cfg["topP"], 0.0001)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want generation.Kind
	}{
		{"quota", genai.APIError{Code: 429, Message: "Resource has been exhausted", Status: "RESOURCE_EXHAUSTED"}, generation.KindRateLimited},
		{"unknown model", genai.APIError{Code: 404, Message: "models/gemini-9 is not found for API version v1beta", Status: "NOT_FOUND"}, generation.KindNotFound},
		{"unsupported", genai.APIError{Code: 400, Message: "model is not supported for generateContent", Status: "INVALID_ARGUMENT"}, generation.KindNotFound},
		{"bad key", genai.APIError{Code: 400, Message: "API key not valid", Status: "INVALID_ARGUMENT"}, generation.KindError},
		{"transport", errors.New("context deadline exceeded"), generation.KindError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classifyError(tt.err)
			assert.Equal(t, tt.want, res.Kind)
		})
	}
}
