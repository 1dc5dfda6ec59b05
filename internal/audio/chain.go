package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/voicedeck/internal/wav"
)

// ErrConversionFailed is returned by a converter whose tool ran and failed.
var ErrConversionFailed = errors.New("audio conversion failed")

// Request describes one conversion. The destination extension selects the
// output format. Zero SampleRate or Channels keep the source values.
type Request struct {
	Src        string
	Dst        string
	SampleRate int
	Channels   int
}

// Converter is one capability provider in a Chain.
type Converter interface {
	Name() string
	// Available reports whether the capability exists on this system.
	Available() bool
	Supports(srcExt, dstExt string) bool
	Convert(ctx context.Context, req Request) error
}

// ConversionError is returned when no converter could produce the output.
type ConversionError struct {
	Format  string
	Missing string
	Err     error
}

func (e *ConversionError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("cannot produce %s audio: %s", e.Format, e.Missing)
	}
	return fmt.Sprintf("cannot produce %s audio: %v", e.Format, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Chain tries converters in order until one succeeds.
type Chain struct {
	converters []Converter
	logger     *slog.Logger
}

// NewChain creates a chain. Order is preference order.
func NewChain(logger *slog.Logger, converters ...Converter) *Chain {
	return &Chain{converters: converters, logger: logger}
}

// DefaultChain builds the standard chain: ffmpeg, then afconvert, then the
// pure-Go converter.
func DefaultChain(ffmpegPath string, logger *slog.Logger) *Chain {
	return NewChain(logger,
		NewFFmpeg(ffmpegPath),
		NewAfconvert(),
		NewNative(),
	)
}

// Names lists the converters with their availability.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.converters))
	for _, conv := range c.converters {
		state := "missing"
		if conv.Available() {
			state = "available"
		}
		names = append(names, conv.Name()+" ("+state+")")
	}
	return names
}

// Convert runs req through the first available converter that supports it,
// falling through to the next one on failure.
func (c *Chain) Convert(ctx context.Context, req Request) error {
	srcExt, dstExt := Ext(req.Src), Ext(req.Dst)

	var failures []error
	var skipped []string
	for _, conv := range c.converters {
		if !conv.Available() || !conv.Supports(srcExt, dstExt) {
			skipped = append(skipped, conv.Name())
			continue
		}

		c.logger.Debug("converting audio", "converter", conv.Name(), "src", req.Src, "dst", req.Dst)

		err := conv.Convert(ctx, req)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("converter failed, trying next", "converter", conv.Name(), "error", err)
		failures = append(failures, fmt.Errorf("%s: %w", conv.Name(), err))
	}

	if len(failures) == 0 {
		return &ConversionError{
			Format:  dstExt,
			Missing: fmt.Sprintf("no converter for .%s to .%s (install ffmpeg; checked %s)", srcExt, dstExt, strings.Join(skipped, ", ")),
		}
	}
	return &ConversionError{Format: dstExt, Err: errors.Join(failures...)}
}

// Normalize returns a mono WAV at sampleRate for src, converting into dir
// when needed. A source already in that shape is returned unchanged.
func (c *Chain) Normalize(ctx context.Context, src, dir string, sampleRate int) (string, error) {
	if Ext(src) == "wav" {
		if info, err := wav.ReadInfoFile(src); err == nil &&
			info.AudioFormat == wav.FormatPCM && info.Channels == 1 && info.SampleRate == sampleRate {
			return src, nil
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dst := filepath.Join(dir, base+"_normalized.wav")

	err := c.Convert(ctx, Request{Src: src, Dst: dst, SampleRate: sampleRate, Channels: 1})
	if err != nil {
		return "", err
	}
	return dst, nil
}
