package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raihanakbr/call-assist/internal/conversation"
	"github.com/raihanakbr/call-assist/internal/suggest"
)

type transcriberFunc func(ctx context.Context, audio []byte) string

func (f transcriberFunc) Transcribe(ctx context.Context, audio []byte) string {
	return f(ctx, audio)
}

type suggesterFunc func(ctx context.Context, text string) suggest.Result

func (f suggesterFunc) Suggestions(ctx context.Context, text string) suggest.Result {
	return f(ctx, text)
}

type testEnv struct {
	t     *testing.T
	store *conversation.Store
	srv   *httptest.Server
}

func newTestEnv(t *testing.T, suggester Suggester) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := conversation.NewStore(t.TempDir(), logger)
	require.NoError(t, err)

	tr := transcriberFunc(func(_ context.Context, audio []byte) string {
		if string(audio) == "silence" {
			return ""
		}
		return "texto de " + string(audio)
	})
	gw := NewGateway(store, tr, suggester, logger)
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)
	return &testEnv{t: t, store: store, srv: srv}
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (e *testEnv) dial() *testClient {
	e.t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(e.srv.URL, "http"), nil)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { conn.Close() })
	return &testClient{t: e.t, conn: conn}
}

func (c *testClient) send(event string, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(Envelope{Event: event, Data: raw}))
}

// expect reads the next envelope and requires it to be event, decoding its data into v
func (c *testClient) expect(event string, v any) {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	require.NoError(c.t, c.conn.ReadJSON(&env))
	require.Equal(c.t, event, env.Event, "data: %s", env.Data)
	if v != nil {
		require.NoError(c.t, json.Unmarshal(env.Data, v))
	}
}

// expectNothing requires no frame to arrive for a short while. The connection is
// unusable afterwards.
func (c *testClient) expectNothing() {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, data, err := c.conn.ReadMessage()
	assert.Error(c.t, err, "unexpected frame: %s", data)
}

func (c *testClient) join(room string) {
	c.t.Helper()
	c.send(EventJoin, RoomPayload{ConversationID: room})
	var status StatusEvent
	c.expect(EventStatus, &status)
	require.Equal(c.t, "Joined conversation "+room, status.Msg)
}

func (e *testEnv) conversation() string {
	e.t.Helper()
	conv, err := e.store.Create()
	require.NoError(e.t, err)
	return conv.ID
}

func TestBroadcastReachesRoomWithClientMessageID(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.conversation()

	a, b := env.dial(), env.dial()
	a.join(room)
	b.join(room)
	a.expect(EventStatus, nil) // b's join

	a.send(EventSendMessage, SendMessagePayload{
		ConversationID: room, Sender: "agent", Content: "Hola, ¿en qué puedo ayudarle?", ClientMessageID: "m-1",
	})

	for _, c := range []*testClient{a, b} {
		var got MessageEvent
		c.expect(EventNewMessage, &got)
		assert.Equal(t, "agent", got.Sender)
		assert.Equal(t, "Hola, ¿en qué puedo ayudarle?", got.Content)
		assert.Equal(t, "m-1", got.ClientMessageID)
		assert.NotEmpty(t, got.Timestamp)
	}

	conv, err := env.store.Get(room)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "Hola, ¿en qué puedo ayudarle?", conv.Messages[0].Content)
}

func TestNoCrossRoomLeakage(t *testing.T) {
	env := newTestEnv(t, nil)
	room1, room2 := env.conversation(), env.conversation()

	a, other := env.dial(), env.dial()
	a.join(room1)
	other.join(room2)

	a.send(EventSendMessage, SendMessagePayload{ConversationID: room1, Sender: "agent", Content: "solo sala 1"})
	a.expect(EventNewMessage, nil)
	other.expectNothing()
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.conversation()

	a, b := env.dial(), env.dial()
	a.join(room)
	b.join(room)
	a.expect(EventStatus, nil)

	b.send(EventLeave, RoomPayload{ConversationID: room})
	var status StatusEvent
	a.expect(EventStatus, &status)
	assert.Equal(t, "Left conversation "+room, status.Msg)
	b.expectNothing()
}

func TestSendMessageErrorsGoToSenderOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.conversation()

	a, b := env.dial(), env.dial()
	a.join(room)
	b.join(room)
	a.expect(EventStatus, nil)

	var e ErrorEvent
	a.send(EventSendMessage, SendMessagePayload{ConversationID: room, Sender: "agent"})
	a.expect(EventError, &e)
	assert.Equal(t, "Missing required fields", e.Msg)

	a.send(EventSendMessage, SendMessagePayload{ConversationID: "missing", Sender: "agent", Content: "hola"})
	a.expect(EventError, &e)
	assert.Equal(t, "Failed to add message", e.Msg)

	b.expectNothing()
}

func TestTranscribeStoresAndBroadcasts(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.conversation()

	a, b := env.dial(), env.dial()
	a.join(room)
	b.join(room)
	a.expect(EventStatus, nil)

	audio := "data:audio/wav;base64," + base64.StdEncoding.EncodeToString([]byte("audio"))
	a.send(EventTranscribe, TranscribePayload{AudioData: audio, ConversationID: room})

	for _, c := range []*testClient{a, b} {
		var msg MessageEvent
		c.expect(EventNewMessage, &msg)
		assert.Equal(t, "client", msg.Sender)
		assert.Equal(t, "texto de audio", msg.Content)

		var result TranscriptionResultEvent
		c.expect(EventTranscriptionResult, &result)
		assert.Equal(t, TranscriptionResultEvent{Text: "texto de audio", Sender: "client"}, result)
	}
}

func TestTranscribeFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.conversation()
	a := env.dial()
	a.join(room)

	var e ErrorEvent
	a.send(EventTranscribe, TranscribePayload{ConversationID: room})
	a.expect(EventError, &e)
	assert.Equal(t, "Audio data and conversation ID are required", e.Msg)

	a.send(EventTranscribe, TranscribePayload{AudioData: "no-comma", ConversationID: room})
	a.expect(EventError, &e)
	assert.True(t, strings.HasPrefix(e.Msg, "Transcription failed: "), e.Msg)

	silence := "data:audio/wav;base64," + base64.StdEncoding.EncodeToString([]byte("silence"))
	a.send(EventTranscribe, TranscribePayload{AudioData: silence, ConversationID: room})
	a.expect(EventError, &e)
	assert.Equal(t, "Transcription failed", e.Msg)

	conv, err := env.store.Get(room)
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)
}

func TestClearConversation(t *testing.T) {
	env := newTestEnv(t, nil)
	room := env.conversation()
	_, err := env.store.AddMessage(room, "agent", "hola")
	require.NoError(t, err)

	a := env.dial()
	a.join(room)

	var e ErrorEvent
	a.send(EventClearConversation, RoomPayload{ConversationID: "missing"})
	a.expect(EventError, &e)
	assert.Equal(t, "Conversation not found", e.Msg)

	a.send(EventClearConversation, RoomPayload{ConversationID: room})
	var cleared ConversationClearedEvent
	a.expect(EventConversationCleared, &cleared)
	assert.Equal(t, room, cleared.ConversationID)

	conv, err := env.store.Get(room)
	require.NoError(t, err)
	assert.Equal(t, room, conv.ID)
	assert.Empty(t, conv.Messages)
}

func TestUnknownAndMalformedEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.dial()

	var e ErrorEvent
	a.send("dance", map[string]string{})
	a.expect(EventError, &e)
	assert.Equal(t, "Unknown event dance", e.Msg)

	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	a.expect(EventError, &e)
	assert.Equal(t, "Invalid message", e.Msg)

	a.send(EventJoin, RoomPayload{})
	a.expect(EventError, &e)
	assert.Equal(t, "Conversation ID is required", e.Msg)
}

func TestAutoSuggestBroadcastsSuggestions(t *testing.T) {
	seen := make(chan string, 1)
	env := newTestEnv(t, suggesterFunc(func(_ context.Context, text string) suggest.Result {
		seen <- text
		return suggest.Result{Success: true, Field: "suggestions", Text: "Ofrezca un descuento.", Model: "gpt-4"}
	}))
	room := env.conversation()
	a := env.dial()
	a.join(room)

	a.send(EventSendMessage, SendMessagePayload{ConversationID: room, Sender: "client", Content: "es muy caro"})
	a.expect(EventNewMessage, nil)

	var got map[string]any
	a.expect(EventSuggestions, &got)
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "Ofrezca un descuento.", got["suggestions"])
	assert.Equal(t, "client: es muy caro", <-seen)
}

func TestDisconnectDropsMemberships(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := conversation.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	gw := NewGateway(store, transcriberFunc(func(context.Context, []byte) string { return "" }), nil, logger)
	srv := httptest.NewServer(gw)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoin, "data": map[string]string{"conversation_id": "room"}}))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	require.Len(t, gw.Hub().Members("room"), 1)

	conn.Close()
	assert.Eventually(t, func() bool { return len(gw.Hub().Members("room")) == 0 }, 2*time.Second, 10*time.Millisecond)
}
