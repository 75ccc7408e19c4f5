// Package config loads process configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Transcription services selectable with TRANSCRIPTION_SERVICE.
const (
	TranscriptionGoogle            = "google"
	TranscriptionWhisper           = "whisper"
	TranscriptionSpeechRecognition = "speechrecognition"
	TranscriptionAssemblyAI        = "assemblyai"
	TranscriptionMock              = "mock"
)

// Completion providers selectable with LLM_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// DefaultSecretKey signs demo session ids when SECRET_KEY is unset. Development only.
const DefaultSecretKey = "dev-key-for-transcription-app"

// Config holds all configuration values. It is read once at process start.
type Config struct {
	// HTTP
	ServerAddr string
	DemoAddr   string

	// Conversation storage
	ConversationsDir string

	// Transcription
	TranscriptionService     string
	SpeechRecognitionBackend string
	LanguageCode             string
	GoogleSpeechAPIKey       string
	WitAIKey                 string
	AzureSpeechKey           string
	AzureSpeechLocation      string
	AssemblyAIAPIKey         string

	// Completion
	LLMProvider     string
	LLMModels       []string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	OllamaHost      string
	PromptsFile     string
	AutoSuggest     bool

	// Demo sessions
	SecretKey       string
	SessionTTL      time.Duration
	SessionCapacity int

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Telemetry
	TelemetryEnabled bool
	TelemetryDir     string
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		ServerAddr: getEnv("SERVER_ADDR", ":5000"),
		DemoAddr:   getEnv("DEMO_ADDR", ":5001"),

		ConversationsDir: getEnv("CONVERSATIONS_DIR", "data/conversations"),

		TranscriptionService:     strings.ToLower(getEnv("TRANSCRIPTION_SERVICE", TranscriptionSpeechRecognition)),
		SpeechRecognitionBackend: strings.ToLower(getEnv("SPEECH_RECOGNITION_BACKEND", "google")),
		LanguageCode:             getEnv("LANGUAGE_CODE", "es-ES"),
		GoogleSpeechAPIKey:       getEnv("GOOGLE_SPEECH_API_KEY", ""),
		WitAIKey:                 getEnv("WIT_AI_KEY", ""),
		AzureSpeechKey:           getEnv("AZURE_SPEECH_KEY", ""),
		AzureSpeechLocation:      getEnv("AZURE_SPEECH_LOCATION", ""),
		AssemblyAIAPIKey:         getEnv("ASSEMBLY_AI_API_KEY", ""),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMModels:       splitList(getEnv("LLM_MODELS", "gpt-4,gpt-3.5-turbo")),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		PromptsFile:     getEnv("PROMPTS_FILE", ""),
		AutoSuggest:     parseBool(getEnv("AUTO_SUGGEST", "false")),

		SecretKey:       getEnv("SECRET_KEY", DefaultSecretKey),
		SessionTTL:      parseDuration(getEnv("SESSION_TTL", "2h"), 2*time.Hour),
		SessionCapacity: parseInt(getEnv("SESSION_CAPACITY", "1024"), 1024),

		LogFile:  getEnv("LOG_FILE", "logs/call-assist.log"),
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "INFO")),

		TelemetryEnabled: parseBool(getEnv("TELEMETRY_ENABLED", "false")),
		TelemetryDir:     getEnv("TELEMETRY_DIR", "logs"),
	}
}

// Language returns the two-letter prefix of the configured language code.
func (c Config) Language() string {
	return LanguagePrefix(c.LanguageCode)
}

// LanguagePrefix returns the lowercase two-letter prefix of a code like "es-ES".
func LanguagePrefix(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) > 2 {
		code = code[:2]
	}
	return code
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
