// Package transcription turns recorded audio into text through interchangeable
// speech-to-text backends. Backend failures never cross the package boundary: they
// are logged and reported as an empty transcript.
package transcription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/raihanakbr/call-assist/internal/config"
)

const instrumentationName = "github.com/raihanakbr/call-assist/internal/transcription"

// Transcriber converts audio to text. An empty string means nothing was recognized.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) string
}

// Recognizer is implemented by each speech backend.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (string, error)
}

// Adapter wraps a Recognizer and degrades its failures to empty transcripts
type Adapter struct {
	name       string
	recognizer Recognizer
	logger     *slog.Logger
	counter    metric.Int64Counter
}

// NewAdapter wraps recognizer under the given backend name
func NewAdapter(name string, recognizer Recognizer, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"callassist.transcriptions",
		metric.WithDescription("Transcription attempts by backend and outcome"),
	)
	if err != nil {
		logger.Warn("failed to create transcription counter", "error", err)
	}
	return &Adapter{name: name, recognizer: recognizer, logger: logger, counter: counter}
}

// Name returns the configured backend name
func (a *Adapter) Name() string {
	return a.name
}

// Close releases backend resources such as the Cloud Speech connection
func (a *Adapter) Close() error {
	if c, ok := a.recognizer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Transcribe runs the backend and returns its text, or "" on any failure
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) string {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "transcribe")
	defer span.End()
	span.SetAttributes(
		attribute.String("transcription.backend", a.name),
		attribute.Int("transcription.audio_bytes", len(audio)),
	)

	start := time.Now()
	text, err := a.recognizer.Recognize(ctx, audio)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error("transcription failed", "backend", a.name, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		text = ""
	case text == "":
		outcome = "empty"
		a.logger.Info("transcription returned no text", "backend", a.name)
	default:
		a.logger.Debug("transcription completed", "backend", a.name, "chars", len(text),
			"duration_ms", time.Since(start).Milliseconds())
	}

	if a.counter != nil {
		a.counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("backend", a.name),
			attribute.String("outcome", outcome),
		))
	}
	return text
}

// New builds the adapter for cfg.TranscriptionService. Unknown service names fall
// back to the speechrecognition backend.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: 60 * time.Second}

	switch cfg.TranscriptionService {
	case config.TranscriptionGoogle:
		rec, err := NewGoogleCloud(ctx, cfg.LanguageCode)
		if err != nil {
			return nil, fmt.Errorf("create google speech client: %w", err)
		}
		return NewAdapter(config.TranscriptionGoogle, rec, logger), nil

	case config.TranscriptionWhisper:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY required for whisper transcription")
		}
		rec := NewWhisper(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Language())
		return NewAdapter(config.TranscriptionWhisper, rec, logger), nil

	case config.TranscriptionAssemblyAI:
		if cfg.AssemblyAIAPIKey == "" {
			return nil, fmt.Errorf("missing environment variable %s", APIKeyEnvVar)
		}
		rec := NewAssemblyAI(cfg.AssemblyAIAPIKey, websocket.DefaultDialer, logger)
		return NewAdapter(config.TranscriptionAssemblyAI, rec, logger), nil

	case config.TranscriptionMock:
		return NewAdapter(config.TranscriptionMock, Mock{}, logger), nil

	default:
		engine := NewEngine(cfg, httpClient)
		if engine == nil {
			logger.Warn("unsupported speech recognition backend, transcripts will be empty",
				"backend", cfg.SpeechRecognitionBackend)
		}
		rec := NewSpeechRecognition(engine, "")
		return NewAdapter(config.TranscriptionSpeechRecognition, rec, logger), nil
	}
}

// withTempAudio writes audio to a temporary .wav file in dir (the system default
// when empty), runs fn with its path and removes the file on every exit path.
func withTempAudio(dir string, audio []byte, fn func(path string) error) error {
	f, err := os.CreateTemp(dir, "audio-*.wav")
	if err != nil {
		return fmt.Errorf("create temp audio file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return fmt.Errorf("write temp audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp audio file: %w", err)
	}
	return fn(path)
}

// MockText is what the Mock backend returns for any non-empty audio.
const MockText = "Hola, me gustaría información sobre sus planes."

// Mock is a fixed-response backend for demos and tests
type Mock struct {
	Text string
}

// Recognize returns the mock text for non-empty audio
func (m Mock) Recognize(_ context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	if m.Text != "" {
		return m.Text, nil
	}
	return MockText, nil
}
