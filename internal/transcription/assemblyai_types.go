package transcription

import "time"

// AssemblyAI streaming configuration
const (
	// Environment variable name for API key
	APIKeyEnvVar  = "ASSEMBLY_AI_API_KEY"
	AssemblyAIURL = "wss://streaming.assemblyai.com/v3/ws"
	SampleRate    = 16000
	FormatTurns   = true

	// Audio chunk configuration
	MaxChunkDurationMs = 1000 // Maximum chunk duration in milliseconds
	MinChunkDurationMs = 50   // Minimum chunk duration in milliseconds
	BytesPerSecond     = SampleRate * 2
	MaxChunkSize       = (MaxChunkDurationMs * BytesPerSecond) / 1000
	MinChunkSize       = (MinChunkDurationMs * BytesPerSecond) / 1000
)

// Message types for AssemblyAI
type BeginMessage struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TurnMessage struct {
	Type            string  `json:"type"`
	Transcript      string  `json:"transcript"`
	TurnIsFormatted bool    `json:"turn_is_formatted"`
	EndOfTurn       bool    `json:"end_of_turn"`
	TurnOrder       int     `json:"turn_order"`
	Words           []Word  `json:"words,omitempty"`
	Confidence      float64 `json:"end_of_turn_confidence,omitempty"`
}

type Word struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

type TerminationMessage struct {
	Type                   string  `json:"type"`
	AudioDurationSeconds   float64 `json:"audio_duration_seconds"`
	SessionDurationSeconds float64 `json:"session_duration_seconds"`
}

type TerminateMessage struct {
	Type string `json:"type"`
}

// ErrorMessage is sent by AssemblyAI before it closes a failed session
type ErrorMessage struct {
	Type         string `json:"type"`
	ErrorCode    any    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}
