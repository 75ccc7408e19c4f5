package transcription

import (
	"context"
)

// SpeechRecognition loads audio through the WAV decoder and dispatches it to a
// named recognition engine. A nil engine (unsupported backend) yields empty text.
type SpeechRecognition struct {
	engine  Engine
	tempDir string
}

// NewSpeechRecognition creates the backend. tempDir may be empty for the system default.
func NewSpeechRecognition(engine Engine, tempDir string) *SpeechRecognition {
	return &SpeechRecognition{engine: engine, tempDir: tempDir}
}

// Recognize writes the audio to a temporary file, decodes it and runs the engine
func (s *SpeechRecognition) Recognize(ctx context.Context, audio []byte) (string, error) {
	var text string
	err := withTempAudio(s.tempDir, audio, func(path string) error {
		clip, err := LoadAudioFile(path)
		if err != nil {
			return err
		}
		if s.engine == nil {
			return nil
		}
		text, err = s.engine.Recognize(ctx, clip)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
