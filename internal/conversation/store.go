// Package conversation persists call transcripts as one JSON file per conversation.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrNotFound is returned when a conversation id does not resolve to a readable record.
var ErrNotFound = errors.New("conversation not found")

// DefaultDir is where conversations are stored when no directory is configured.
const DefaultDir = "data/conversations"

const fileExt = ".json"

// validID keeps ids usable as plain file names.
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store is the file-backed conversation store. Every read re-parses the file;
// read-modify-write cycles are not serialized.
type Store struct {
	dir    string
	logger *slog.Logger
	added  metric.Int64Counter
}

// NewStore creates the storage directory if needed and returns a store rooted at it
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	added, err := otel.Meter("github.com/raihanakbr/call-assist/internal/conversation").Int64Counter(
		"callassist.messages.added",
		metric.WithDescription("Messages appended to conversations"),
	)
	if err != nil {
		logger.Warn("failed to create message counter", "error", err)
	}
	return &Store{dir: dir, logger: logger, added: added}, nil
}

// Dir returns the storage directory
func (s *Store) Dir() string {
	return s.dir
}

// New builds a conversation with a fresh id without persisting it
func (s *Store) New() *Conversation {
	return &Conversation{ID: ulid.Make().String(), Messages: []Message{}}
}

// Create builds a conversation with a fresh id and persists it before returning
func (s *Store) Create() (*Conversation, error) {
	conv := s.New()
	if err := s.Save(conv); err != nil {
		return nil, err
	}
	s.logger.Info("created conversation", "conversation_id", conv.ID)
	return conv, nil
}

// Get loads a conversation. Missing, unreadable and unparsable records all
// report ErrNotFound.
func (s *Store) Get(id string) (*Conversation, error) {
	path, ok := s.path(id)
	if !ok {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read conversation", "conversation_id", id, "error", err)
		}
		return nil, ErrNotFound
	}

	conv, err := decode(data)
	if err != nil {
		s.logger.Warn("failed to parse conversation", "conversation_id", id, "error", err)
		return nil, ErrNotFound
	}
	if conv.ID != id {
		s.logger.Warn("conversation id does not match file name", "conversation_id", id, "record_id", conv.ID)
		return nil, ErrNotFound
	}
	return conv, nil
}

// GetOrCreate returns the conversation for id, or a freshly persisted one when id
// does not resolve. The boolean reports whether a new conversation was created.
func (s *Store) GetOrCreate(id string) (*Conversation, bool, error) {
	conv, err := s.Get(id)
	if err == nil {
		return conv, false, nil
	}
	conv, err = s.Create()
	if err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

// AddMessage appends a message to an existing conversation and persists it
func (s *Store) AddMessage(id, sender, content string) (Message, error) {
	conv, err := s.Get(id)
	if err != nil {
		return Message{}, err
	}

	msg := conv.AddMessage(sender, content)
	if err := s.Save(conv); err != nil {
		return Message{}, err
	}
	if s.added != nil {
		s.added.Add(context.Background(), 1, metric.WithAttributes(attribute.String("sender", sender)))
	}
	return msg, nil
}

// Clear empties a conversation's messages and persists it
func (s *Store) Clear(id string) (*Conversation, error) {
	conv, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	conv.Clear()
	if err := s.Save(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Save overwrites the conversation's backing file with its full content
func (s *Store) Save(conv *Conversation) error {
	if conv == nil {
		return fmt.Errorf("save conversation: nil conversation")
	}
	path, ok := s.path(conv.ID)
	if !ok {
		return fmt.Errorf("save conversation: invalid id %q", conv.ID)
	}

	data, err := encode(conv)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", conv.ID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("failed to save conversation", "conversation_id", conv.ID, "error", err)
		return fmt.Errorf("write conversation %s: %w", conv.ID, err)
	}
	return nil
}

// List summarizes every persisted conversation in directory order.
// Records that fail to load are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("read storage dir: %w", err)
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		conv, err := s.Get(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		summaries = append(summaries, conv.Summarize())
	}
	return summaries, nil
}

func (s *Store) path(id string) (string, bool) {
	if !validID.MatchString(id) {
		return "", false
	}
	return filepath.Join(s.dir, id+fileExt), true
}
