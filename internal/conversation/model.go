package conversation

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for message timestamps.
// Fixed-width fractional seconds keep timestamps from one zone sortable as strings.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Message represents a single utterance in a conversation
type Message struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time
func NewMessage(sender, content string) Message {
	return Message{
		Sender:    sender,
		Content:   content,
		Timestamp: Now(),
	}
}

// Now returns the current time formatted with TimestampLayout
func Now() string {
	return time.Now().Format(TimestampLayout)
}

// Conversation represents a call transcript between an agent and a client
type Conversation struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// AddMessage appends a new message and returns it
func (c *Conversation) AddMessage(sender, content string) Message {
	msg := NewMessage(sender, content)
	c.Messages = append(c.Messages, msg)
	return msg
}

// Clear drops every message while keeping the conversation identity
func (c *Conversation) Clear() {
	c.Messages = []Message{}
}

// LastMessage returns the most recent message, if any
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Transcript renders the conversation as "sender: content" lines
func (c *Conversation) Transcript() string {
	var b strings.Builder
	for i, m := range c.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Sender)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// Summary is the listing view of a persisted conversation
type Summary struct {
	ID            string   `json:"id"`
	MessagesCount int      `json:"messages_count"`
	LastMessage   *Message `json:"last_message"`
}

// Summarize builds the listing view of the conversation
func (c *Conversation) Summarize() Summary {
	s := Summary{ID: c.ID, MessagesCount: len(c.Messages)}
	if last, ok := c.LastMessage(); ok {
		s.LastMessage = &last
	}
	return s
}

var errMalformed = errors.New("malformed conversation record")

// record mirrors the on-disk layout; pointers tell missing fields from empty ones.
type record struct {
	ID       *string `json:"id"`
	Messages []struct {
		Sender    *string `json:"sender"`
		Content   *string `json:"content"`
		Timestamp string  `json:"timestamp"`
	} `json:"messages"`
}

// decode parses a persisted conversation. Records without an id, or with messages
// lacking sender or content, are rejected; missing timestamps get the load time.
func decode(data []byte) (*Conversation, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.ID == nil || *rec.ID == "" {
		return nil, errMalformed
	}

	conv := &Conversation{ID: *rec.ID, Messages: make([]Message, 0, len(rec.Messages))}
	for _, m := range rec.Messages {
		if m.Sender == nil || m.Content == nil {
			return nil, errMalformed
		}
		ts := m.Timestamp
		if ts == "" {
			ts = Now()
		}
		conv.Messages = append(conv.Messages, Message{Sender: *m.Sender, Content: *m.Content, Timestamp: ts})
	}
	return conv, nil
}

// encode renders the conversation the way it is persisted
func encode(c *Conversation) ([]byte, error) {
	out := *c
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	return json.MarshalIndent(out, "", "  ")
}
