package main

import (
	"errors"
	"io"
	"log/slog"
	"slices"

	"github.com/dgnsrekt/voicedeck/internal/assets"
	"github.com/dgnsrekt/voicedeck/internal/audio"
	"github.com/dgnsrekt/voicedeck/internal/config"
	"github.com/dgnsrekt/voicedeck/internal/history"
	"github.com/dgnsrekt/voicedeck/internal/logging"
	"github.com/dgnsrekt/voicedeck/internal/pipeline"
	"github.com/dgnsrekt/voicedeck/internal/playback"
	"github.com/dgnsrekt/voicedeck/internal/transcribe"
	"github.com/dgnsrekt/voicedeck/internal/tts"
	"github.com/dgnsrekt/voicedeck/internal/voices"
)

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *assets.Registry
	voices   *voices.Store
	chain    *audio.Chain
	closers  []io.Closer
}

// newApp builds the always-needed components. Interactive sessions log to
// the configured file; everything else logs to stderr.
func newApp(cfg *config.Config, interactive bool) (*app, error) {
	a := &app{cfg: cfg}

	if interactive {
		logger, closer, err := logging.OpenFile(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
		if err != nil {
			return nil, err
		}
		a.logger = logger
		a.closers = append(a.closers, closer)
	} else {
		a.logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	}

	a.logger.Info("configuration loaded",
		"data_dir", cfg.DataDir,
		"output_format", cfg.OutputFormat,
		"sample_rate", cfg.SampleRate,
		"auto_play", cfg.AutoPlay,
		"hf_endpoint", cfg.HFEndpoint,
	)

	a.registry = assets.New(assets.Options{
		Root:       cfg.ModelsDir,
		Fetcher:    assets.NewHFFetcher(cfg.HFEndpoint, cfg.HFToken, a.logger),
		MaxRetries: cfg.FetchMaxRetries,
		Backoff:    cfg.FetchBackoff,
		Logger:     a.logger,
	})

	store, err := voices.Open(voices.Options{Dir: cfg.VoicesDir, Logger: a.logger})
	if err != nil {
		a.Close()
		return nil, err
	}
	if store.Len() == 0 {
		if _, err := store.ImportLegacy(cfg.VoicesDir); err != nil {
			a.logger.Warn("legacy voice import failed", "dir", cfg.VoicesDir, "error", err)
		}
	}
	a.voices = store

	a.chain = audio.DefaultChain(cfg.FFmpegPath, a.logger)
	a.logger.Debug("audio converters", "chain", a.chain.Names())

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) history() (*history.Store, error) {
	h, err := history.Open(a.cfg.HistoryDir, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, h)
	return h, nil
}

func (a *app) engines() *tts.Registry {
	registry := tts.NewRegistry()
	engine, err := tts.NewCommandEngine(tts.CommandConfig{
		Command: a.cfg.SynthCommand,
		Timeout: a.cfg.SynthTimeout,
	}, a.logger)
	if err != nil {
		a.logger.Warn("synthesizer unavailable, generation will fail", "command", a.cfg.SynthCommand, "error", err)
		return registry
	}
	if err := registry.Register(engine); err != nil {
		a.logger.Warn("failed to register synthesizer", "error", err)
	}
	return registry
}

// player returns nil when auto-play is off.
func (a *app) player() playback.Player {
	if !a.cfg.AutoPlay {
		return nil
	}
	cmd, err := playback.DetectCommand(a.cfg.PlayerCommand)
	if err != nil {
		a.logger.Warn("no audio player available", "error", err)
		return playback.Unavailable{Err: err}
	}
	p := playback.NewCommandPlayer(cmd, a.logger)
	a.closers = append(a.closers, p)
	return p
}

func (a *app) transcriber() transcribe.Transcriber {
	if !a.cfg.TranscriptionEnabled() {
		return transcribe.None{}
	}
	w := transcribe.NewWhisper(a.cfg.WhisperBin, a.cfg.WhisperModel, a.chain, a.logger)
	if !w.Available() {
		a.logger.Warn("transcription configured but unavailable", "bin", a.cfg.WhisperBin, "model", a.cfg.WhisperModel)
	}
	return w
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	h, err := a.history()
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Options{
		Engines:        a.engines(),
		Models:         a.registry,
		Converter:      a.chain,
		Player:         a.player(),
		History:        h,
		OutputsDir:     a.cfg.OutputsDir,
		MaxTextLength:  a.cfg.MaxTextLength,
		FilenameMaxLen: a.cfg.FilenameMaxLen,
		Logger:         a.logger,
	}), nil
}
