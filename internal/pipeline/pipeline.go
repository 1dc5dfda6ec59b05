// Package pipeline turns a generation request into a saved audio file:
// synthesis, a lossless intermediate, optional conversion, placement under
// the mode's output folder, playback and a history record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/voicedeck/internal/audio"
	"github.com/dgnsrekt/voicedeck/internal/errs"
	"github.com/dgnsrekt/voicedeck/internal/history"
	"github.com/dgnsrekt/voicedeck/internal/modes"
	"github.com/dgnsrekt/voicedeck/internal/playback"
	"github.com/dgnsrekt/voicedeck/internal/tts"
	"github.com/dgnsrekt/voicedeck/internal/wav"
)

// LosslessFormat is the intermediate container every render produces.
const LosslessFormat = "wav"

// ErrEmptyOutput is returned when synthesis succeeds without producing audio.
var ErrEmptyOutput = errors.New("synthesis produced no audio")

// SynthesisError wraps a failure of the synthesis collaborator.
type SynthesisError struct {
	Mode modes.ID
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s synthesis: %v", e.Mode, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Engines picks the synthesis engine for a mode.
type Engines interface {
	ForMode(mode modes.ID) (tts.Engine, error)
}

// Models resolves the model directory of a mode.
type Models interface {
	ModelPath(mode modes.Descriptor) (string, error)
}

// Converter converts between audio container formats.
type Converter interface {
	Convert(ctx context.Context, req audio.Request) error
}

// Recorder appends completed generations to a log.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Options wires a Pipeline. Engines, Models and OutputsDir are required.
type Options struct {
	Engines    Engines
	Models     Models
	Converter  Converter
	Player     playback.Player // nil disables playback
	History    Recorder        // nil disables the log
	OutputsDir string
	TempDir    string
	// MaxTextLength is measured in characters. Zero means unlimited.
	MaxTextLength  int
	FilenameMaxLen int
	Probe          func(path string) (audio.Probe, error)
	Now            func() time.Time
	Logger         *slog.Logger
}

// Pipeline runs generations. It is used from a single goroutine.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	if opts.Probe == nil {
		opts.Probe = audio.ProbeFile
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FilenameMaxLen <= 0 {
		opts.FilenameMaxLen = 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{opts: opts, logger: opts.Logger}
}

// Rendered is synthesized audio held in the lossless intermediate.
type Rendered struct {
	Request    Request
	Mode       modes.Descriptor
	Path       string
	Duration   time.Duration
	SampleRate int
	dir        string
}

// Discard removes the intermediate file.
func (r *Rendered) Discard() {
	if r != nil && r.dir != "" {
		os.RemoveAll(r.dir)
		r.dir = ""
	}
}

// Result describes a saved generation.
type Result struct {
	ID         string
	OutputPath string
	Duration   time.Duration
	Mode       modes.ID
	Format     string
	Timestamp  time.Time
	// Warnings are non-fatal problems such as a failed playback.
	Warnings []string
}

// Validate checks req without touching any collaborator.
func (p *Pipeline) Validate(req Request) error {
	text := strings.TrimSpace(req.text())
	if text == "" {
		return errs.Invalid("text", "must not be empty")
	}
	if n := utf8.RuneCountInString(text); p.opts.MaxTextLength > 0 && n > p.opts.MaxTextLength {
		return errs.Invalid("text", "too long (%d characters, max %d)", n, p.opts.MaxTextLength)
	}
	if err := req.validate(); err != nil {
		return err
	}

	if c, ok := req.(Clone); ok {
		probe, err := p.opts.Probe(c.RefAudio)
		if err != nil {
			return err
		}
		if probe.Duration <= 0 {
			return errs.Invalid("reference audio", "%s has zero length", filepath.Base(c.RefAudio))
		}
	}
	return nil
}

// Render validates req, synthesizes it and writes the lossless intermediate.
// The caller owns the result and must Deliver or Discard it.
func (p *Pipeline) Render(ctx context.Context, req Request) (*Rendered, error) {
	if err := p.Validate(req); err != nil {
		return nil, err
	}

	mode, ok := modes.Lookup(req.Mode())
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", req.Mode())
	}
	modelPath, err := p.opts.Models.ModelPath(mode)
	if err != nil {
		return nil, err
	}
	engine, err := p.opts.Engines.ForMode(mode.ID)
	if err != nil {
		return nil, &SynthesisError{Mode: mode.ID, Err: err}
	}

	sreq := req.synthesis()
	sreq.ModelPath = modelPath

	p.logger.Info("synthesizing", "mode", mode.ID, "engine", engine.Name(), "text_length", len(sreq.Text))
	start := time.Now()

	out, err := engine.Synthesize(ctx, sreq)
	if err != nil {
		return nil, &SynthesisError{Mode: mode.ID, Err: err}
	}
	if out == nil || len(out.Samples) == 0 || out.SampleRate <= 0 {
		return nil, fmt.Errorf("%s: %w", mode.ID, ErrEmptyOutput)
	}

	dir, err := os.MkdirTemp(p.opts.TempDir, "voicedeck-render-")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	path := filepath.Join(dir, "render."+LosslessFormat)
	if err := wav.WriteFile(path, out.Samples, out.SampleRate); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write intermediate audio: %w", err)
	}

	p.logger.Debug("synthesis complete", "mode", mode.ID, "duration", out.Duration(), "elapsed", time.Since(start))

	return &Rendered{
		Request:    req,
		Mode:       mode,
		Path:       path,
		Duration:   out.Duration(),
		SampleRate: out.SampleRate,
		dir:        dir,
	}, nil
}

// Deliver converts r to format, saves it under the mode's output folder,
// starts playback and records the generation. A *audio.ConversionError leaves
// r intact so the caller can retry with LosslessFormat.
func (p *Pipeline) Deliver(ctx context.Context, r *Rendered, format string) (*Result, error) {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		format = LosslessFormat
	}

	dir := filepath.Join(p.opts.OutputsDir, r.Mode.Folder)
	if sub := r.Request.subfolder(); sub != "" {
		dir = filepath.Join(dir, sub)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	now := p.opts.Now()
	dest := uniquePath(dir, OutputName(now, r.Request.text(), p.opts.FilenameMaxLen, format))

	if format == LosslessFormat {
		if err := moveFile(r.Path, dest); err != nil {
			return nil, fmt.Errorf("save output: %w", err)
		}
	} else {
		if p.opts.Converter == nil {
			return nil, &audio.ConversionError{Format: format, Missing: "no converter configured", Err: audio.ErrConversionFailed}
		}
		if err := p.opts.Converter.Convert(ctx, audio.Request{Src: r.Path, Dst: dest}); err != nil {
			os.Remove(dest)
			return nil, err
		}
	}
	r.Discard()

	result := &Result{
		ID:         history.NewID(),
		OutputPath: dest,
		Duration:   r.Duration,
		Mode:       r.Mode.ID,
		Format:     format,
		Timestamp:  now,
	}
	p.logger.Info("generation saved", "generation_id", result.ID, "mode", result.Mode, "output_path", dest, "duration", result.Duration)

	if p.opts.Player != nil {
		if err := p.opts.Player.Play(dest); err != nil {
			p.logger.Warn("playback failed", "output_path", dest, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("playback failed: %v", err))
		}
	}

	if p.opts.History != nil {
		if _, err := p.opts.History.Record(ctx, p.entry(r.Request, result)); err != nil {
			p.logger.Warn("history record failed", "generation_id", result.ID, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("history not recorded: %v", err))
		}
	}

	return result, nil
}

// Generate is Render followed by Deliver. On a conversion failure the
// intermediate is discarded; use Render and Deliver to offer a fallback.
func (p *Pipeline) Generate(ctx context.Context, req Request, format string) (*Result, error) {
	r, err := p.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	defer r.Discard()
	return p.Deliver(ctx, r, format)
}

func (p *Pipeline) entry(req Request, res *Result) history.Entry {
	e := history.Entry{
		ID:         res.ID,
		Mode:       res.Mode,
		OutputPath: res.OutputPath,
		Format:     res.Format,
		Text:       strings.TrimSpace(req.text()),
		Duration:   res.Duration,
		CreatedAt:  res.Timestamp,
	}
	switch r := req.(type) {
	case CustomVoice:
		e.Speaker = r.Speaker
		e.Instruct = r.Emotion
	case VoiceDesign:
		e.Instruct = r.Description
	case Clone:
		e.VoiceID = r.VoiceID
		e.VoiceName = r.VoiceName
	}
	return e
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
