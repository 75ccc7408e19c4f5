// Package server exposes the conversation store, transcription and suggestion
// capabilities over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/raihanakbr/call-assist/internal/conversation"
	"github.com/raihanakbr/call-assist/internal/transcription"
	"github.com/raihanakbr/call-assist/internal/websocket"
)

// maxBodyBytes bounds request bodies; audio arrives inline as base64.
const maxBodyBytes = 16 << 20

// Store is the conversation store as used by the HTTP handlers
type Store interface {
	websocket.Store
	Create() (*conversation.Conversation, error)
	GetOrCreate(id string) (*conversation.Conversation, bool, error)
	List() ([]conversation.Summary, error)
}

// Server serves the main call-assist application
type Server struct {
	store       Store
	transcriber transcription.Transcriber
	// serviceName is reported to the conversation view
	serviceName string
	gateway     *websocket.Gateway
	logger      *slog.Logger
}

func New(store Store, transcriber transcription.Transcriber, serviceName string, gateway *websocket.Gateway, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:       store,
		transcriber: transcriber,
		serviceName: serviceName,
		gateway:     gateway,
		logger:      logger,
	}
}

// Routes returns the application handler
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /conversations/new", s.handleNewConversation)
	mux.HandleFunc("GET /conversations/{id}", s.handleViewConversation)

	// REST API endpoints
	mux.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("POST /api/conversations/{id}/messages", s.handleAddMessage)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)

	// WebSocket endpoint
	mux.Handle("GET /ws", s.gateway)

	mux.HandleFunc("GET /health", handleHealth)

	return LoggingMiddleware(s.logger)(mux)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
