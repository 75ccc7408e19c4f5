package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// Anthropic completes prompts with the Messages API
type Anthropic struct {
	client anthropic.Client
}

func NewAnthropic(apiKey string, opts ...anthropicoption.RequestOption) *Anthropic {
	reqOpts := append([]anthropicoption.RequestOption{anthropicoption.WithAPIKey(apiKey)}, opts...)
	return &Anthropic{client: anthropic.NewClient(reqOpts...)}
}

func (a *Anthropic) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   maxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Completion{}, err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return Completion{}, fmt.Errorf("no text in response")
	}
	return Completion{Text: b.String(), Model: string(msg.Model)}, nil
}
