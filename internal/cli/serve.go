package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raihanakbr/call-assist/internal/conversation"
	"github.com/raihanakbr/call-assist/internal/server"
	"github.com/raihanakbr/call-assist/internal/suggest"
	"github.com/raihanakbr/call-assist/internal/telemetry"
	"github.com/raihanakbr/call-assist/internal/transcription"
	"github.com/raihanakbr/call-assist/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the call-assist web server",
	Long: `Serve the conversation API, the transcription endpoint and the websocket
gateway on SERVER_ADDR. The transcription backend is selected with
TRANSCRIPTION_SERVICE; AUTO_SUGGEST=true broadcasts suggestions after
every new message.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := startTelemetry(ctx)
	defer shutdownTelemetry()

	store, err := conversation.NewStore(cfg.ConversationsDir, logger)
	if err != nil {
		return err
	}

	tr, err := transcription.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init transcription: %w", err)
	}
	defer tr.Close()

	var suggester websocket.Suggester
	if cfg.AutoSuggest {
		engine, err := suggest.FromConfig(cfg, logger)
		if err != nil {
			logger.Warn("automatic suggestions disabled", "error", err)
		} else {
			suggester = engine
		}
	}

	gateway := websocket.NewGateway(store, tr, suggester, logger)
	srv := server.New(store, tr, tr.Name(), gateway, logger)

	logger.Info("starting call-assist",
		"addr", cfg.ServerAddr,
		"transcription_service", tr.Name(),
		"conversations_dir", store.Dir(),
		"auto_suggest", suggester != nil,
	)
	return listenAndServe(ctx, cfg.ServerAddr, srv.Routes())
}

// listenAndServe runs handler on addr until ctx is cancelled, then shuts down gracefully
func listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,  // Audio uploads arrive inline
		WriteTimeout: 120 * time.Second, // Long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "url", "http://localhost"+addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// startTelemetry installs exporters when enabled and returns their shutdown func
func startTelemetry(ctx context.Context) func() {
	if !cfg.TelemetryEnabled {
		return func() {}
	}
	shutdown, err := telemetry.Setup(ctx, cfg.TelemetryDir, Version)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("failed to flush telemetry", "error", err)
		}
	}
}
