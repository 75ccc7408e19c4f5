package suggest

import (
	"context"
	"fmt"

	"github.com/raihanakbr/call-assist/internal/config"
)

// CompletionRequest is one call to a text-completion backend.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completion is the backend's reply. Model is the identifier the backend reports,
// which may differ from the requested one.
type Completion struct {
	Text  string
	Model string
}

// Completer sends a single prompt to a completion API
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// NewCompleter builds the backend named by cfg.LLMProvider.
func NewCompleter(cfg config.Config) (Completer, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY required for the openai provider")
		}
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY required for the anthropic provider")
		}
		return NewAnthropic(cfg.AnthropicAPIKey), nil

	case config.ProviderOllama:
		return NewOllama(cfg.OllamaHost)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
