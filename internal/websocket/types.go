package websocket

import (
	"encoding/json"

	"github.com/raihanakbr/call-assist/internal/conversation"
)

// Events sent by clients
const (
	EventJoin              = "join"
	EventLeave             = "leave"
	EventSendMessage       = "send_message"
	EventTranscribe        = "transcribe"
	EventClearConversation = "clear_conversation"
)

// Events sent by the server
const (
	EventStatus              = "status"
	EventNewMessage          = "new_message"
	EventError               = "error"
	EventTranscriptionResult = "transcription_result"
	EventConversationCleared = "conversation_cleared"
	EventSuggestions         = "suggestions"
)

// Envelope frames every message on the channel in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outbound is the server-side form of Envelope
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client payloads

type RoomPayload struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessagePayload struct {
	ConversationID  string `json:"conversation_id"`
	Sender          string `json:"sender"`
	Content         string `json:"content"`
	ClientMessageID string `json:"client_message_id,omitempty"`
}

type TranscribePayload struct {
	AudioData      string `json:"audio_data"`
	ConversationID string `json:"conversation_id"`
	Sender         string `json:"sender,omitempty"`
}

// Server payloads

type StatusEvent struct {
	Msg string `json:"msg"`
}

type ErrorEvent struct {
	Msg string `json:"msg"`
}

// MessageEvent is a stored message, echoing the sender's client_message_id when present
type MessageEvent struct {
	conversation.Message
	ClientMessageID string `json:"client_message_id,omitempty"`
}

type TranscriptionResultEvent struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

type ConversationClearedEvent struct {
	ConversationID string `json:"conversation_id"`
}
