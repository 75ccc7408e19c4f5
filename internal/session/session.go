// Package session maps demo session ids to the conversations that hold their
// transcripts. The index is bounded in size and lifetime; the conversation store
// remains the source of truth for the transcript itself.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/oklog/ulid/v2"
)

// ErrUnknownSession is returned for ids that are malformed, badly signed, expired
// or evicted.
var ErrUnknownSession = errors.New("unknown session")

// Index is safe for concurrent use.
type Index struct {
	secret []byte
	lru    *expirable.LRU[string, string]
}

// NewIndex creates an index holding at most capacity sessions for ttl each.
func NewIndex(secret string, capacity int, ttl time.Duration) *Index {
	return &Index{
		secret: []byte(secret),
		lru:    expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

// Create registers a new session for conversationID and returns its signed id.
func (x *Index) Create(conversationID string) string {
	id := ulid.Make().String()
	signed := id + "." + x.sign(id)
	x.lru.Add(id, conversationID)
	return signed
}

// Lookup returns the conversation id of a session.
func (x *Index) Lookup(sessionID string) (string, error) {
	id, sig, ok := strings.Cut(sessionID, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(x.sign(id))) {
		return "", ErrUnknownSession
	}
	conversationID, ok := x.lru.Get(id)
	if !ok {
		return "", ErrUnknownSession
	}
	return conversationID, nil
}

// Len returns the number of live sessions.
func (x *Index) Len() int {
	return x.lru.Len()
}

func (x *Index) sign(id string) string {
	mac := hmac.New(sha256.New, x.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
