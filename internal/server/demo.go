package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/raihanakbr/call-assist/internal/conversation"
	"github.com/raihanakbr/call-assist/internal/session"
	"github.com/raihanakbr/call-assist/internal/suggest"
	"github.com/raihanakbr/call-assist/internal/transcription"
)

// Assistant runs one suggestion capability
type Assistant interface {
	Run(ctx context.Context, capability suggest.Capability, lang, text string) suggest.Result
}

// DemoStore is the part of the conversation store the demo server uses
type DemoStore interface {
	Create() (*conversation.Conversation, error)
	Get(id string) (*conversation.Conversation, error)
	AddMessage(id, sender, content string) (conversation.Message, error)
}

// Demo is the companion server exercising the assistant without the full UI.
// Session transcripts live in the conversation store; sessions only index them.
type Demo struct {
	store       DemoStore
	sessions    *session.Index
	assistant   Assistant
	transcriber transcription.Transcriber
	logger      *slog.Logger
}

func NewDemo(store DemoStore, sessions *session.Index, assistant Assistant, transcriber transcription.Transcriber, logger *slog.Logger) *Demo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Demo{
		store:       store,
		sessions:    sessions,
		assistant:   assistant,
		transcriber: transcriber,
		logger:      logger,
	}
}

// Routes returns the demo handler
func (d *Demo) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /transcribe", d.handleTranscribe)
	mux.HandleFunc("POST /get-suggestions", d.capability(suggest.CapSuggestions))
	mux.HandleFunc("POST /ask-question", d.capability(suggest.CapAnswer))
	mux.HandleFunc("POST /analyze-sentiment", d.capability(suggest.CapSentiment))
	mux.HandleFunc("POST /generate-summary", d.capability(suggest.CapSummary))
	mux.HandleFunc("POST /new-session", d.handleNewSession)
	mux.HandleFunc("POST /update-transcript", d.handleUpdateTranscript)
	mux.HandleFunc("GET /health", handleHealth)

	return LoggingMiddleware(d.logger)(mux)
}

type demoRequest struct {
	Text      string `json:"text"`
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	Language  string `json:"language"`
	Sender    string `json:"sender"`
	AudioData string `json:"audio_data"`
}

func demoError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// capability serves one assistant capability. Summaries of a blank text fall back
// to the session's stored transcript.
func (d *Demo) capability(capability suggest.Capability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req demoRequest
		if err := decodeBody(w, r, &req); err != nil {
			demoError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		text := req.Text
		if capability == suggest.CapAnswer && req.Question != "" {
			text = req.Question
		}
		if capability == suggest.CapSummary && strings.TrimSpace(text) == "" && req.SessionID != "" {
			conv, err := d.sessionConversation(req.SessionID)
			if err != nil {
				demoError(w, http.StatusNotFound, "Session not found")
				return
			}
			text = conv.Transcript()
		}

		writeJSON(w, http.StatusOK, d.assistant.Run(r.Context(), capability, req.Language, text))
	}
}

func (d *Demo) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req demoRequest
	if err := decodeBody(w, r, &req); err != nil || req.AudioData == "" {
		demoError(w, http.StatusBadRequest, "Audio data is required")
		return
	}
	audio, err := transcription.DecodeDataURL(req.AudioData)
	if err != nil {
		demoError(w, http.StatusBadRequest, "Transcription failed: "+err.Error())
		return
	}

	text := d.transcriber.Transcribe(r.Context(), audio)
	if text == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Transcription failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "text": text})
}

func (d *Demo) handleNewSession(w http.ResponseWriter, r *http.Request) {
	conv, err := d.store.Create()
	if err != nil {
		d.logger.Error("failed to create session conversation", "error", err)
		demoError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	id := d.sessions.Create(conv.ID)
	d.logger.Info("created demo session", "conversation_id", conv.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"session_id":      id,
		"conversation_id": conv.ID,
	})
}

func (d *Demo) handleUpdateTranscript(w http.ResponseWriter, r *http.Request) {
	var req demoRequest
	if err := decodeBody(w, r, &req); err != nil {
		demoError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.Text) == "" {
		demoError(w, http.StatusBadRequest, "Session ID and text are required")
		return
	}
	sender := req.Sender
	if sender == "" {
		sender = "client"
	}

	conversationID, err := d.sessions.Lookup(req.SessionID)
	if err != nil {
		demoError(w, http.StatusNotFound, "Session not found")
		return
	}
	msg, err := d.store.AddMessage(conversationID, sender, req.Text)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			demoError(w, http.StatusNotFound, "Session not found")
			return
		}
		d.logger.Error("failed to update transcript", "conversation_id", conversationID, "error", err)
		demoError(w, http.StatusInternalServerError, "Failed to update transcript")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}

func (d *Demo) sessionConversation(sessionID string) (*conversation.Conversation, error) {
	conversationID, err := d.sessions.Lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return d.store.Get(conversationID)
}
