package transcription

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Whisper transcribes audio through the OpenAI speech-to-text endpoint
type Whisper struct {
	client   openai.Client
	language string
	tempDir  string
}

// NewWhisper creates a Whisper backend. language is a two-letter code; baseURL
// may point at any OpenAI-compatible server.
func NewWhisper(apiKey, baseURL, language string, opts ...option.RequestOption) *Whisper {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &Whisper{
		client:   openai.NewClient(reqOpts...),
		language: language,
	}
}

// Recognize uploads the audio as a temporary .wav file
func (w *Whisper) Recognize(ctx context.Context, audio []byte) (string, error) {
	var text string
	err := withTempAudio(w.tempDir, audio, func(path string) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open temp audio file: %w", err)
		}
		defer f.Close()

		params := openai.AudioTranscriptionNewParams{
			File:  f,
			Model: openai.AudioModelWhisper1,
		}
		if w.language != "" {
			params.Language = openai.String(w.language)
		}

		resp, err := w.client.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			return fmt.Errorf("whisper transcription: %w", err)
		}
		text = resp.Text
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
