// Package suggest produces call-assistance text (suggestions, answers, sentiment
// analysis and summaries) by sending transcript text to a completion backend with a
// per-capability instruction template, trying a list of models in order.
package suggest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/raihanakbr/call-assist/internal/config"
)

const instrumentationName = "github.com/raihanakbr/call-assist/internal/suggest"

// Result is the outcome of one capability call. It marshals to
// {"success":true,"<field>":...,"model":...} or {"success":false,"error":...}.
type Result struct {
	Success bool
	Field   string
	Text    string
	Model   string
	Error   string
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := map[string]any{"success": r.Success}
	if r.Success {
		out[r.Field] = r.Text
		out["model"] = r.Model
	} else {
		out["error"] = r.Error
	}
	return json.Marshal(out)
}

// Engine is stateless apart from its configuration and safe for concurrent use.
type Engine struct {
	completer Completer
	models    []string
	templates Templates
	language  string
	logger    *slog.Logger
	duration  metric.Float64Histogram
}

// NewEngine creates an engine. language is the default language code (e.g.
// "es-ES") used when a call does not name one.
func NewEngine(completer Completer, models []string, templates Templates, language string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	duration, err := otel.Meter(instrumentationName).Float64Histogram(
		"callassist.completion.duration",
		metric.WithDescription("Duration of completion attempts"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn("failed to create completion histogram", "error", err)
	}
	return &Engine{
		completer: completer,
		models:    models,
		templates: templates,
		language:  config.LanguagePrefix(language),
		logger:    logger,
		duration:  duration,
	}
}

// FromConfig builds the engine with the configured provider, models and templates.
func FromConfig(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	completer, err := NewCompleter(cfg)
	if err != nil {
		return nil, err
	}
	templates, err := LoadTemplates(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	return NewEngine(completer, cfg.LLMModels, templates, cfg.LanguageCode, logger), nil
}

// Suggestions proposes short replies for the agent from conversation text.
func (e *Engine) Suggestions(ctx context.Context, text string) Result {
	return e.Run(ctx, CapSuggestions, "", text)
}

// Answer answers a direct question from the agent.
func (e *Engine) Answer(ctx context.Context, question string) Result {
	return e.Run(ctx, CapAnswer, "", question)
}

// Sentiment analyzes the customer's sentiment in text.
func (e *Engine) Sentiment(ctx context.Context, text string) Result {
	return e.Run(ctx, CapSentiment, "", text)
}

// Summary summarizes a call transcript.
func (e *Engine) Summary(ctx context.Context, transcript string) Result {
	return e.Run(ctx, CapSummary, "", transcript)
}

// Run executes capability on text. lang is a language code or prefix; empty uses
// the engine default. Blank text is rejected without calling the backend. Models
// are tried in order and the first success wins; only the last error is reported.
func (e *Engine) Run(ctx context.Context, capability Capability, lang, text string) Result {
	if lang == "" {
		lang = e.language
	}
	lang = config.LanguagePrefix(lang)

	tmpl, msgs, err := e.templates.Lookup(capability, lang)
	if err != nil {
		return Result{Error: err.Error()}
	}
	if strings.TrimSpace(text) == "" {
		return Result{Field: tmpl.Field, Error: msgs.EmptyInput}
	}

	var lastErr error
	for _, model := range e.models {
		completion, err := e.attempt(ctx, capability, model, CompletionRequest{
			Model:       model,
			System:      msgs.System,
			Prompt:      text,
			Temperature: tmpl.Temperature,
			MaxTokens:   tmpl.MaxTokens,
		})
		if err != nil {
			lastErr = err
			e.logger.Warn("completion failed, trying next model",
				"capability", capability, "model", model, "error", err)
			continue
		}
		return Result{Success: true, Field: tmpl.Field, Text: completion.Text, Model: completion.Model}
	}

	reason := "no models configured"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	e.logger.Error("all completion models failed", "capability", capability, "error", reason)
	return Result{Field: tmpl.Field, Error: msgs.FailureMessage(reason)}
}

func (e *Engine) attempt(ctx context.Context, capability Capability, model string, req CompletionRequest) (Completion, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "completion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("completion.capability", string(capability)),
			attribute.String("completion.model", model),
		),
	)
	defer span.End()

	start := time.Now()
	completion, err := e.completer.Complete(ctx, req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if e.duration != nil {
		e.duration.Record(ctx, elapsed, metric.WithAttributes(
			attribute.String("capability", string(capability)),
			attribute.String("model", model),
			attribute.String("outcome", outcome),
		))
	}
	if err == nil && completion.Model == "" {
		completion.Model = model
	}
	return completion, err
}
