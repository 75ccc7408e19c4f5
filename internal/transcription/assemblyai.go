package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketDialer opens the streaming connection to AssemblyAI
type WebsocketDialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// AssemblyAI transcribes a recorded clip by streaming it to the AssemblyAI
// real-time API and collecting the formatted turns.
type AssemblyAI struct {
	apiKey string
	url    string
	// Dialer used to establish connections to AssemblyAI
	dialer WebsocketDialer
	logger *slog.Logger
	// realtime paces chunks at their audio duration
	realtime bool
}

// NewAssemblyAI creates the streaming backend with an injected dialer
func NewAssemblyAI(apiKey string, dialer WebsocketDialer, logger *slog.Logger) *AssemblyAI {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AssemblyAI{
		apiKey:   apiKey,
		url:      AssemblyAIURL,
		dialer:   dialer,
		logger:   logger,
		realtime: true,
	}
}

// streamSession tracks a single streaming connection
type streamSession struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger
	mu     sync.Mutex
	done   chan struct{}
	turns  []string
	err    error
}

// Recognize streams raw 16 kHz 16-bit PCM and returns the formatted turns joined by spaces
func (a *AssemblyAI) Recognize(ctx context.Context, audio []byte) (string, error) {
	u, err := url.Parse(a.url)
	if err != nil {
		return "", fmt.Errorf("failed to parse AssemblyAI URL: %v", err)
	}
	q := u.Query()
	q.Set("sample_rate", fmt.Sprintf("%d", SampleRate))
	q.Set("format_turns", fmt.Sprintf("%t", FormatTurns))
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", a.apiKey)

	conn, _, err := a.dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return "", fmt.Errorf("failed to connect to AssemblyAI: %v", err)
	}
	defer conn.Close()

	session := &streamSession{conn: conn, logger: a.logger, done: make(chan struct{})}
	go session.listen()

	if err := session.sendAudio(ctx, audio, a.realtime); err != nil {
		return "", err
	}
	if err := session.terminate(); err != nil {
		select {
		case <-session.done:
			// Session already ended on the server side
		default:
			return "", err
		}
	}

	select {
	case <-session.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.err != nil {
		return "", session.err
	}
	return strings.Join(session.turns, " "), nil
}

// listen collects formatted turns until AssemblyAI terminates the session
func (s *streamSession) listen() {
	defer close(s.done)

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("read from AssemblyAI: %w", err))
			return
		}

		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &base); err != nil {
			s.logger.Warn("error parsing AssemblyAI message", "error", err)
			continue
		}

		switch base.Type {
		case "Begin":
			var begin BeginMessage
			if err := json.Unmarshal(message, &begin); err == nil {
				s.id = begin.ID
				s.logger.Debug("AssemblyAI session began", "session_id", begin.ID, "expires_at", begin.ExpiresAt)
			}
		case "Turn":
			var turn TurnMessage
			if err := json.Unmarshal(message, &turn); err != nil {
				continue
			}
			// Only formatted turns are final
			if !turn.TurnIsFormatted {
				s.logger.Debug("partial transcript", "session_id", s.id, "text", turn.Transcript)
				continue
			}
			if text := strings.TrimSpace(turn.Transcript); text != "" {
				s.mu.Lock()
				s.turns = append(s.turns, text)
				s.mu.Unlock()
			}
		case "Termination":
			var term TerminationMessage
			if err := json.Unmarshal(message, &term); err == nil {
				s.logger.Debug("AssemblyAI session terminated", "session_id", s.id,
					"audio_duration_s", term.AudioDurationSeconds,
					"session_duration_s", term.SessionDurationSeconds)
			}
			return
		case "Error":
			var msg ErrorMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				s.fail(fmt.Errorf("AssemblyAI error (unparsable): %s", message))
			} else {
				s.fail(fmt.Errorf("AssemblyAI error: code=%v message=%s", msg.ErrorCode, msg.ErrorMessage))
			}
			return
		default:
			s.logger.Debug("unknown message type from AssemblyAI", "type", base.Type)
		}
	}
}

func (s *streamSession) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// sendAudio splits the clip into chunks AssemblyAI accepts: between 50 and 1000 ms,
// never splitting a 16-bit sample, with the tail padded with silence up to the minimum.
func (s *streamSession) sendAudio(ctx context.Context, audio []byte, realtime bool) error {
	for _, chunk := range chunkAudio(audio) {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			return fmt.Errorf("failed to send audio to AssemblyAI: %v", err)
		}
		if !realtime {
			continue
		}
		chunkDuration := time.Duration(len(chunk)) * time.Second / BytesPerSecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-time.After(chunkDuration):
		}
	}
	return nil
}

// terminate asks AssemblyAI to flush remaining turns and close the session
func (s *streamSession) terminate() error {
	data, err := json.Marshal(TerminateMessage{Type: "Terminate"})
	if err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("error sending termination message to AssemblyAI: %v", err)
	}
	return nil
}

// chunkAudio splits PCM into chunks of at most MaxChunkSize bytes. A trailing
// chunk shorter than MinChunkSize is padded with silence.
func chunkAudio(audio []byte) [][]byte {
	// Drop a dangling odd byte so no sample is split
	audio = audio[:len(audio)/2*2]

	var chunks [][]byte
	for len(audio) > 0 {
		size := MaxChunkSize
		if len(audio) < size {
			size = len(audio)
		}
		chunk := make([]byte, size, max(size, MinChunkSize))
		copy(chunk, audio[:size])
		if size < MinChunkSize {
			chunk = append(chunk, make([]byte, MinChunkSize-size)...)
		}
		chunks = append(chunks, chunk)
		audio = audio[size:]
	}
	return chunks
}
