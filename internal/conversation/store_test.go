package conversation_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/raihanakbr/call-assist/internal/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *conversation.Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := conversation.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	return store
}

func TestCreatePersists(t *testing.T) {
	store := newStore(t)

	conv, err := store.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Empty(t, conv.Messages)

	_, err = os.Stat(filepath.Join(store.Dir(), conv.ID+".json"))
	require.NoError(t, err, "created conversation should be on disk")

	loaded, err := store.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, loaded.ID)
}

func TestNewDoesNotPersist(t *testing.T) {
	store := newStore(t)

	conv := store.New()
	_, err := store.Get(conv.ID)
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestAddMessageThenGet(t *testing.T) {
	store := newStore(t)
	conv, err := store.Create()
	require.NoError(t, err)

	inputs := []struct{ sender, content string }{
		{"agent", "Buenos días"},
		{"client", "Tengo un problema con mi factura"},
		{"agent", "Claro, revisemos"},
	}

	var prev string
	for _, in := range inputs {
		msg, err := store.AddMessage(conv.ID, in.sender, in.content)
		require.NoError(t, err)

		loaded, err := store.Get(conv.ID)
		require.NoError(t, err)
		last, ok := loaded.LastMessage()
		require.True(t, ok)
		assert.Equal(t, msg, last)
		assert.Equal(t, in.sender, last.Sender)
		assert.Equal(t, in.content, last.Content)
		assert.GreaterOrEqual(t, last.Timestamp, prev, "timestamps should not decrease")
		prev = last.Timestamp
	}
}

func TestAddMessageUnknownConversation(t *testing.T) {
	store := newStore(t)

	_, err := store.AddMessage("01HZZZZZZZZZZZZZZZZZZZZZZZ", "agent", "hola")
	assert.ErrorIs(t, err, conversation.ErrNotFound)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "no file should be created for an unknown id")
}

func TestSaveRoundTrip(t *testing.T) {
	store := newStore(t)

	conv := &conversation.Conversation{
		ID: "C1",
		Messages: []conversation.Message{
			{Sender: "agent", Content: "uno", Timestamp: "2024-05-01T10:00:00.000000Z"},
			{Sender: "client", Content: "dos", Timestamp: "2024-05-01T10:00:01.000000Z"},
			{Sender: "agent", Content: "tres", Timestamp: "2024-05-01T10:00:02.000000Z"},
		},
	}
	require.NoError(t, store.Save(conv))

	loaded, err := store.Get("C1")
	require.NoError(t, err)
	assert.Equal(t, conv, loaded)
}

func TestClearPreservesIdentity(t *testing.T) {
	store := newStore(t)
	conv, err := store.Create()
	require.NoError(t, err)
	_, err = store.AddMessage(conv.ID, "agent", "hola")
	require.NoError(t, err)

	cleared, err := store.Clear(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, cleared.ID)

	loaded, err := store.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, loaded.ID)
	assert.Empty(t, loaded.Messages)
}

func TestClearUnknownConversation(t *testing.T) {
	store := newStore(t)
	_, err := store.Clear("missing")
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestGetTreatsCorruptionAsNotFound(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated json", `{"id": "C1", "messages": [`},
		{"missing id", `{"messages": []}`},
		{"mismatched id", `{"id": "C2", "messages": []}`},
		{"message without sender", `{"id": "C1", "messages": [{"content": "x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			path := filepath.Join(store.Dir(), "C1.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := store.Get("C1")
			assert.ErrorIs(t, err, conversation.ErrNotFound)
		})
	}
}

func TestGetFillsMissingTimestamp(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(store.Dir(), "C1.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"C1","messages":[{"sender":"agent","content":"hola"}]}`), 0o644))

	conv, err := store.Get("C1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	assert.NotEmpty(t, conv.Messages[0].Timestamp)
}

func TestGetRejectsPathLikeIDs(t *testing.T) {
	store := newStore(t)
	for _, id := range []string{"", "../etc/passwd", "a/b", "x.json"} {
		_, err := store.Get(id)
		assert.ErrorIs(t, err, conversation.ErrNotFound, "id %q", id)
	}
}

func TestGetOrCreate(t *testing.T) {
	store := newStore(t)
	existing, err := store.Create()
	require.NoError(t, err)

	conv, created, err := store.GetOrCreate(existing.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, conv.ID)

	conv, created, err = store.GetOrCreate("unknown")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "unknown", conv.ID)
}

func TestListSummaries(t *testing.T) {
	store := newStore(t)
	c1, err := store.Create()
	require.NoError(t, err)
	_, err = store.AddMessage(c1.ID, "agent", "Hola, ¿en qué puedo ayudarle?")
	require.NoError(t, err)

	empty, err := store.Create()
	require.NoError(t, err)

	// Non-conversation files and corrupt records are skipped.
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{"), 0o644))

	summaries, err := store.List()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byID := map[string]conversation.Summary{}
	for _, s := range summaries {
		byID[s.ID] = s
	}

	s1, ok := byID[c1.ID]
	require.True(t, ok)
	assert.Equal(t, 1, s1.MessagesCount)
	require.NotNil(t, s1.LastMessage)
	assert.Equal(t, "Hola, ¿en qué puedo ayudarle?", s1.LastMessage.Content)

	s2, ok := byID[empty.ID]
	require.True(t, ok)
	assert.Equal(t, 0, s2.MessagesCount)
	assert.Nil(t, s2.LastMessage)
}

func TestTranscript(t *testing.T) {
	conv := &conversation.Conversation{ID: "C1"}
	conv.AddMessage("agent", "Hola")
	conv.AddMessage("client", "Quiero cancelar")

	assert.Equal(t, "agent: Hola\nclient: Quiero cancelar", conv.Transcript())
}
