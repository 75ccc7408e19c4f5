package suggest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raihanakbr/call-assist/internal/config"
)

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var body struct {
			Model       string  `json:"model"`
			MaxTokens   int     `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4", body.Model)
		assert.Equal(t, 150, body.MaxTokens)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "user", body.Messages[1].Role)
		assert.Equal(t, "cliente: hola", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4-0613",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Salude al cliente."}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL+"/", option.WithMaxRetries(0))
	got, err := c.Complete(context.Background(), CompletionRequest{
		Model: "gpt-4", System: "sys", Prompt: "cliente: hola", Temperature: 0.7, MaxTokens: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, Completion{Text: "Salude al cliente.", Model: "gpt-4-0613"}, got)
}

func TestOpenAICompleteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"message":"The model does not exist","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL+"/", option.WithMaxRetries(0))
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "gpt-5"})
	assert.Error(t, err)
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ant-key", r.Header.Get("X-Api-Key"))
		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			System    []struct {
				Text string `json:"text"`
			} `json:"system"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-5", body.Model)
		assert.Equal(t, 400, body.MaxTokens)
		require.Len(t, body.System, 1)
		assert.Equal(t, "Resume la llamada.", body.System[0].Text)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5-20250929",
			"content":[{"type":"text","text":"- Cliente "},{"type":"text","text":"interesado"}],
			"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":4}}`)
	}))
	defer srv.Close()

	c := NewAnthropic("ant-key", anthropicoption.WithBaseURL(srv.URL+"/"), anthropicoption.WithMaxRetries(0))
	got, err := c.Complete(context.Background(), CompletionRequest{
		Model: "claude-sonnet-4-5", System: "Resume la llamada.", Prompt: "agent: hola", MaxTokens: 400,
	})
	require.NoError(t, err)
	assert.Equal(t, "- Cliente interesado", got.Text)
	assert.Equal(t, "claude-sonnet-4-5-20250929", got.Model)
}

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"openai", config.Config{LLMProvider: config.ProviderOpenAI, OpenAIAPIKey: "sk"}, false},
		{"openai without key", config.Config{LLMProvider: config.ProviderOpenAI}, true},
		{"anthropic", config.Config{LLMProvider: config.ProviderAnthropic, AnthropicAPIKey: "k"}, false},
		{"anthropic without key", config.Config{LLMProvider: config.ProviderAnthropic}, true},
		{"ollama", config.Config{LLMProvider: config.ProviderOllama, OllamaHost: "http://localhost:11434"}, false},
		{"unknown", config.Config{LLMProvider: "cohere"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompleter(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}
