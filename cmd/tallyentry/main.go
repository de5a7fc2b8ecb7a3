// Command tallyentry is a data-entry workstation for polling station tally
// sheets.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	conf   *Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tallyentry",
	Short: "Transcribe polling station tally sheets section by section",
	Long: `tallyentry runs data-entry sessions over polling station tally records.

A record is entered section by section. Every save is validated, errors and
warnings must be accepted before moving on, and unsaved work is guarded when
leaving a section or the entry.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		conf, err = loadConfig(configPath, os.Getenv)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		level := slog.LevelInfo
		if verbose || conf.Verbose {
			level = slog.LevelDebug
		}
		slog.SetLogLoggerLevel(level)
		logger = slog.Default().With("run", uuid.NewString())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a JSON config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(enterCmd, statusCmd, schemaCmd, deleteCmd, finalizeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// withBackend opens the configured store for the duration of fn.
func withBackend(fn func(b *backend) error) error {
	b, err := openBackend(conf)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := b.Close(); cErr != nil {
			logger.Warn("Close store", "error", cErr)
		}
	}()
	return fn(b)
}
