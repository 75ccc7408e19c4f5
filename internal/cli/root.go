// Package cli provides the command-line interface for call-assist.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/raihanakbr/call-assist/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	envFile string

	// Loaded in PersistentPreRunE
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "call-assist",
	Short: "Real-time call assistance server",
	Long: `call-assist transcribes call audio, stores conversation transcripts and
relays them to connected agents over websockets, with LLM-generated
suggestions, answers, sentiment analysis and summaries.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// Load environment variables from .env if present
		envErr := loadEnv(envFile)

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)

		if envErr != nil {
			if envFile != "" {
				return fmt.Errorf("load env file %s: %w", envFile, envErr)
			}
			logger.Info("no .env file found; using system environment variables")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

func loadEnv(path string) error {
	if path != "" {
		return godotenv.Load(path)
	}
	return godotenv.Load()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment from this file instead of .env")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(demoCmd)
}
