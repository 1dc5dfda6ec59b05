package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voicedeck/internal/config"
	"github.com/dgnsrekt/voicedeck/internal/nav"
	"github.com/dgnsrekt/voicedeck/internal/studio"
)

var (
	// Global flags
	configFile string
	dataDir    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "voicedeck",
	Short: "Offline text-to-speech studio",
	Long: `voicedeck - an interactive studio for local text-to-speech models.

Run without arguments to open the studio. Modes:
  1  Custom Voice   preset speakers with emotion and speed control
  2  Voice Design   describe a voice in words
  3  Voice Cloning  clone a saved or dropped-in recording

Models are downloaded on first use into <data dir>/models.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStudio,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default $"+config.ConfigFileEnv+")")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "root for models, outputs, voices and history")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(modelsCmd, voicesCmd, historyCmd, versionCmd)
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		path = os.Getenv(config.ConfigFileEnv)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.WithDataDir(dataDir)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM. onSignal runs after the
// cancel.
func signalContext(logger *slog.Logger, onSignal func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig.String())
			cancel()
			if onSignal != nil {
				onSignal()
			}
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func runStudio(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	// Closing stdin unblocks a pending line read.
	ctx, cancel := signalContext(a.logger, func() { os.Stdin.Close() })
	defer cancel()

	p, err := a.pipeline()
	if err != nil {
		return err
	}

	s := studio.New(studio.Options{
		Nav:          nav.New(nav.NewTerminal(os.Stdin), cmd.OutOrStdout()),
		Assets:       a.registry,
		Voices:       a.voices,
		Generator:    p,
		Transcriber:  a.transcriber(),
		Normalizer:   a.chain,
		OutputFormat: cfg.OutputFormat,
		SampleRate:   cfg.SampleRate,
		Logger:       a.logger,
	})

	err = s.Run(ctx)
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, nav.ErrTerminal)) {
		a.logger.Info("shutdown complete")
		return nil
	}
	return err
}
