package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raihanakbr/call-assist/internal/config"
	"github.com/raihanakbr/call-assist/internal/conversation"
	"github.com/raihanakbr/call-assist/internal/server"
	"github.com/raihanakbr/call-assist/internal/session"
	"github.com/raihanakbr/call-assist/internal/suggest"
	"github.com/raihanakbr/call-assist/internal/transcription"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the companion demo server",
	Long: `Serve the assistant capabilities (suggestions, answers, sentiment, summaries)
and demo sessions on DEMO_ADDR. Transcription is mocked.`,
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := startTelemetry(ctx)
	defer shutdownTelemetry()

	store, err := conversation.NewStore(cfg.ConversationsDir, logger)
	if err != nil {
		return err
	}

	engine, err := suggest.FromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("init suggestion engine: %w", err)
	}

	if cfg.SecretKey == config.DefaultSecretKey {
		logger.Warn("SECRET_KEY is the development default; session ids are forgeable")
	}
	sessions := session.NewIndex(cfg.SecretKey, cfg.SessionCapacity, cfg.SessionTTL)

	tr := transcription.NewAdapter(config.TranscriptionMock, transcription.Mock{}, logger)
	demo := server.NewDemo(store, sessions, engine, tr, logger)

	logger.Info("starting call-assist demo",
		"addr", cfg.DemoAddr,
		"llm_provider", cfg.LLMProvider,
		"models", cfg.LLMModels,
	)
	return listenAndServe(ctx, cfg.DemoAddr, demo.Routes())
}
