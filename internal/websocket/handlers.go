// Package websocket relays conversation updates to browsers subscribed by
// conversation id. Every frame is a JSON envelope {"event": ..., "data": {...}}.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raihanakbr/call-assist/internal/conversation"
	"github.com/raihanakbr/call-assist/internal/suggest"
	"github.com/raihanakbr/call-assist/internal/transcription"
)

const suggestTimeout = 60 * time.Second

// Store is the part of the conversation store the gateway uses
type Store interface {
	Get(id string) (*conversation.Conversation, error)
	AddMessage(id, sender, content string) (conversation.Message, error)
	Clear(id string) (*conversation.Conversation, error)
}

// Suggester produces agent suggestions for a transcript
type Suggester interface {
	Suggestions(ctx context.Context, text string) suggest.Result
}

// Gateway upgrades HTTP requests and dispatches client events
type Gateway struct {
	hub         *Hub
	store       Store
	transcriber transcription.Transcriber
	// suggester is optional; when set every new message triggers a suggestions broadcast
	suggester Suggester
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// NewGateway creates a gateway. suggester may be nil.
func NewGateway(store Store, transcriber transcription.Transcriber, suggester Suggester, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		hub:         NewHub(logger),
		store:       store,
		transcriber: transcriber,
		suggester:   suggester,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Hub returns the room registry
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// ServeHTTP handles a new WebSocket connection and serves it until it closes
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := NewClient(conn, g.logger)
	client.logger.Info("client connected", "remote_addr", r.RemoteAddr)
	go client.pingLoop()

	defer func() {
		rooms := g.hub.LeaveAll(client)
		client.Close()
		client.logger.Info("client disconnected", "rooms", len(rooms))
	}()

	ctx := context.WithoutCancel(r.Context())
	client.readLoop(func(env Envelope) {
		g.dispatch(ctx, client, env)
	})
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, env Envelope) {
	c.logger.Debug("received event", "event", env.Event)

	switch env.Event {
	case EventJoin:
		var p RoomPayload
		if decode(c, env, &p) {
			g.handleJoin(c, p)
		}
	case EventLeave:
		var p RoomPayload
		if decode(c, env, &p) {
			g.handleLeave(c, p)
		}
	case EventSendMessage:
		var p SendMessagePayload
		if decode(c, env, &p) {
			g.handleSendMessage(c, p)
		}
	case EventTranscribe:
		var p TranscribePayload
		if decode(c, env, &p) {
			g.handleTranscribe(ctx, c, p)
		}
	case EventClearConversation:
		var p RoomPayload
		if decode(c, env, &p) {
			g.handleClear(c, p)
		}
	default:
		c.EmitError(fmt.Sprintf("Unknown event %s", env.Event))
	}
}

func decode(c *Client, env Envelope, v any) bool {
	if len(env.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		c.EmitError("Invalid message")
		return false
	}
	return true
}

func (g *Gateway) handleJoin(c *Client, p RoomPayload) {
	if p.ConversationID == "" {
		c.EmitError("Conversation ID is required")
		return
	}
	g.hub.Join(p.ConversationID, c)
	g.hub.Broadcast(p.ConversationID, EventStatus, StatusEvent{Msg: "Joined conversation " + p.ConversationID})
}

func (g *Gateway) handleLeave(c *Client, p RoomPayload) {
	if p.ConversationID == "" {
		c.EmitError("Conversation ID is required")
		return
	}
	g.hub.Leave(p.ConversationID, c)
	g.hub.Broadcast(p.ConversationID, EventStatus, StatusEvent{Msg: "Left conversation " + p.ConversationID})
}

func (g *Gateway) handleSendMessage(c *Client, p SendMessagePayload) {
	if p.ConversationID == "" || p.Sender == "" || p.Content == "" {
		c.EmitError("Missing required fields")
		return
	}

	msg, err := g.store.AddMessage(p.ConversationID, p.Sender, p.Content)
	if err != nil {
		c.logger.Warn("failed to add message", "conversation_id", p.ConversationID, "error", err)
		c.EmitError("Failed to add message")
		return
	}
	g.PublishMessage(p.ConversationID, msg, p.ClientMessageID)
}

func (g *Gateway) handleTranscribe(ctx context.Context, c *Client, p TranscribePayload) {
	if p.AudioData == "" || p.ConversationID == "" {
		c.EmitError("Audio data and conversation ID are required")
		return
	}
	sender := p.Sender
	if sender == "" {
		sender = "client"
	}

	audio, err := transcription.DecodeDataURL(p.AudioData)
	if err != nil {
		c.EmitError("Transcription failed: " + err.Error())
		return
	}

	text := g.transcriber.Transcribe(ctx, audio)
	if text == "" {
		c.EmitError("Transcription failed")
		return
	}

	msg, err := g.store.AddMessage(p.ConversationID, sender, text)
	if err != nil {
		c.logger.Warn("failed to store transcription", "conversation_id", p.ConversationID, "error", err)
	} else {
		g.PublishMessage(p.ConversationID, msg, "")
	}
	g.hub.Broadcast(p.ConversationID, EventTranscriptionResult, TranscriptionResultEvent{Text: text, Sender: sender})
}

func (g *Gateway) handleClear(c *Client, p RoomPayload) {
	if p.ConversationID == "" {
		c.EmitError("Conversation ID is required")
		return
	}

	if _, err := g.store.Clear(p.ConversationID); err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			c.EmitError("Conversation not found")
			return
		}
		c.logger.Error("failed to clear conversation", "conversation_id", p.ConversationID, "error", err)
		c.EmitError("Failed to clear conversation")
		return
	}
	g.hub.Broadcast(p.ConversationID, EventConversationCleared, ConversationClearedEvent{ConversationID: p.ConversationID})
}

// PublishMessage broadcasts a stored message to its room, echoing clientMessageID
// when set, and schedules suggestions when a suggester is configured.
func (g *Gateway) PublishMessage(conversationID string, msg conversation.Message, clientMessageID string) {
	g.hub.Broadcast(conversationID, EventNewMessage, MessageEvent{Message: msg, ClientMessageID: clientMessageID})
	if g.suggester != nil {
		go g.suggest(conversationID)
	}
}

func (g *Gateway) suggest(conversationID string) {
	conv, err := g.store.Get(conversationID)
	if err != nil {
		g.logger.Warn("skipping suggestions", "conversation_id", conversationID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), suggestTimeout)
	defer cancel()

	result := g.suggester.Suggestions(ctx, conv.Transcript())
	g.hub.Broadcast(conversationID, EventSuggestions, result)
}
