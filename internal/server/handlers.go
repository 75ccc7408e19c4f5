package server

import (
	"errors"
	"net/http"

	"github.com/raihanakbr/call-assist/internal/conversation"
	"github.com/raihanakbr/call-assist/internal/transcription"
)

// handleIndex lists conversation summaries
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List()
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	if summaries == nil {
		summaries = []conversation.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": summaries})
}

// handleNewConversation creates a persisted conversation and redirects to it
func (s *Server) handleNewConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.Create()
	if err != nil {
		s.logger.Error("failed to create conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}
	http.Redirect(w, r, "/conversations/"+conv.ID, http.StatusSeeOther)
}

// handleViewConversation returns the conversation view. Unknown ids get a fresh
// conversation and a redirect to it.
func (s *Server) handleViewConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conv, created, err := s.store.GetOrCreate(id)
	if err != nil {
		s.logger.Error("failed to create conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}
	if created {
		http.Redirect(w, r, "/conversations/"+conv.ID, http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation":          conv,
		"conversation_id":       id,
		"transcription_service": s.serviceName,
	})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type addMessageRequest struct {
	Sender          string `json:"sender"`
	Content         string `json:"content"`
	ClientMessageID string `json:"client_message_id"`
}

// handleAddMessage appends a message and broadcasts it to the conversation's room
func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req addMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Sender and content are required")
		return
	}
	if req.Sender == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "Sender and content are required")
		return
	}

	msg, err := s.store.AddMessage(id, req.Sender, req.Content)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		s.logger.Error("failed to add message", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to add message")
		return
	}

	s.gateway.PublishMessage(id, msg, req.ClientMessageID)
	writeJSON(w, http.StatusCreated, msg)
}

type transcribeRequest struct {
	AudioData string `json:"audio_data"`
}

// handleTranscribe decodes a data URL and returns the recognized text
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := decodeBody(w, r, &req); err != nil || req.AudioData == "" {
		writeError(w, http.StatusBadRequest, "Audio data is required")
		return
	}

	audio, err := transcription.DecodeDataURL(req.AudioData)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Transcription failed: "+err.Error())
		return
	}

	text := s.transcriber.Transcribe(r.Context(), audio)
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}
