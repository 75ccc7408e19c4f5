package transcription

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDataURL is returned when audio is not of the form data:<mime>;base64,<payload>.
var ErrInvalidDataURL = errors.New("invalid audio data URL")

// DecodeDataURL splits a data URL on its first comma, discards the prefix and
// base64-decodes the payload.
func DecodeDataURL(s string) ([]byte, error) {
	_, payload, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing comma separator", ErrInvalidDataURL)
	}

	payload = strings.TrimSpace(payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// MediaRecorder payloads occasionally arrive without padding
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, nil
}
