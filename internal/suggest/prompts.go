package suggest

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Capability names one kind of completion the engine can produce.
type Capability string

const (
	CapSuggestions Capability = "suggestions"
	CapAnswer      Capability = "answer"
	CapSentiment   Capability = "sentiment"
	CapSummary     Capability = "summary"
)

// FallbackLanguage is used when a template has no entry for the requested language.
const FallbackLanguage = "en"

//go:embed prompts.yaml
var defaultPrompts []byte

// Template configures one capability.
type Template struct {
	// Field is the JSON key the model output is returned under.
	Field       string                  `yaml:"field"`
	MaxTokens   int                     `yaml:"max_tokens"`
	Temperature float64                 `yaml:"temperature"`
	Languages   map[string]LanguageText `yaml:"languages"`
}

// LanguageText holds the messages of a template in one language.
type LanguageText struct {
	System     string `yaml:"system"`
	EmptyInput string `yaml:"empty_input"`
	// Failure may contain "{error}", replaced with the last backend error.
	Failure string `yaml:"failure"`
}

// FailureMessage renders the failure text for err.
func (l LanguageText) FailureMessage(err string) string {
	if !strings.Contains(l.Failure, "{error}") {
		return strings.TrimSpace(l.Failure + " " + err)
	}
	return strings.ReplaceAll(l.Failure, "{error}", err)
}

// Templates maps capabilities to their templates.
type Templates map[Capability]Template

// DefaultTemplates returns the embedded templates.
func DefaultTemplates() (Templates, error) {
	return parseTemplates(defaultPrompts)
}

// LoadTemplates returns the embedded templates merged with the YAML file at path.
// An empty path returns the defaults. Entries in the file replace the matching
// capability fields and language texts; everything else is kept.
func LoadTemplates(path string) (Templates, error) {
	templates, err := DefaultTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	if path == "" {
		return templates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	override, err := parseTemplates(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	templates.merge(override)
	return templates, nil
}

func parseTemplates(data []byte) (Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if t == nil {
		t = Templates{}
	}
	return t, nil
}

func (t Templates) merge(override Templates) {
	for capability, o := range override {
		base, ok := t[capability]
		if !ok {
			t[capability] = o
			continue
		}
		if o.Field != "" {
			base.Field = o.Field
		}
		if o.MaxTokens > 0 {
			base.MaxTokens = o.MaxTokens
		}
		if o.Temperature > 0 {
			base.Temperature = o.Temperature
		}
		if base.Languages == nil {
			base.Languages = map[string]LanguageText{}
		}
		for lang, text := range o.Languages {
			merged := base.Languages[lang]
			if text.System != "" {
				merged.System = text.System
			}
			if text.EmptyInput != "" {
				merged.EmptyInput = text.EmptyInput
			}
			if text.Failure != "" {
				merged.Failure = text.Failure
			}
			base.Languages[lang] = merged
		}
		t[capability] = base
	}
}

// Lookup returns the template of capability and its text for lang, falling back
// to English when lang has no entry.
func (t Templates) Lookup(capability Capability, lang string) (Template, LanguageText, error) {
	tmpl, ok := t[capability]
	if !ok {
		return Template{}, LanguageText{}, fmt.Errorf("unknown capability %q", capability)
	}
	if text, ok := tmpl.Languages[lang]; ok {
		return tmpl, text, nil
	}
	if text, ok := tmpl.Languages[FallbackLanguage]; ok {
		return tmpl, text, nil
	}
	return Template{}, LanguageText{}, fmt.Errorf("capability %q has no %q template", capability, FallbackLanguage)
}
