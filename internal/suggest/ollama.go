package suggest

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Ollama completes prompts against a local Ollama server through langchaingo
type Ollama struct {
	llm llms.Model
}

func NewOllama(serverURL string) (*Ollama, error) {
	llm, err := ollama.New(ollama.WithServerURL(serverURL))
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return &Ollama{llm: llm}, nil
}

func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}
	opts := []llms.CallOption{
		llms.WithModel(req.Model),
		llms.WithTemperature(req.Temperature),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := o.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return Completion{}, fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("no response choices")
	}
	// Ollama does not report the model back through langchaingo.
	return Completion{Text: resp.Choices[0].Content, Model: req.Model}, nil
}
