// Package transcribe turns reference audio into text with an optional
// external speech recognizer.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

var (
	// ErrUnavailable is returned by transcribers that cannot run.
	ErrUnavailable = errors.New("transcription unavailable")
	// ErrEmptyTranscript is returned when the recognizer produced no text.
	ErrEmptyTranscript = errors.New("transcription produced no text")
)

// whisperRate is the sample rate whisper.cpp expects.
const whisperRate = 16000

// Transcriber converts an audio file into text.
type Transcriber interface {
	Available() bool
	Transcribe(ctx context.Context, path string) (string, error)
}

// Normalizer produces a mono WAV at the given rate.
type Normalizer interface {
	Normalize(ctx context.Context, src, dir string, sampleRate int) (string, error)
}

// None is the Transcriber used when nothing is configured.
type None struct{}

func (None) Available() bool { return false }

func (None) Transcribe(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// Whisper runs a whisper.cpp CLI binary.
type Whisper struct {
	bin       string
	model     string
	normalize Normalizer
	logger    *slog.Logger
}

// NewWhisper returns a whisper.cpp transcriber. It reports itself unavailable
// when the binary is not on PATH or the model file is missing.
func NewWhisper(bin, model string, normalize Normalizer, logger *slog.Logger) *Whisper {
	w := &Whisper{model: model, normalize: normalize, logger: logger}
	if bin == "" || model == "" {
		return w
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		logger.Debug("whisper binary not found", "bin", bin)
		return w
	}
	if _, err := os.Stat(model); err != nil {
		logger.Debug("whisper model not found", "model", model)
		return w
	}
	w.bin = path
	return w
}

// Available reports whether both the binary and the model were found.
func (w *Whisper) Available() bool {
	return w.bin != ""
}

// Transcribe converts path to 16 kHz mono and runs the recognizer on it.
func (w *Whisper) Transcribe(ctx context.Context, path string) (string, error) {
	if !w.Available() {
		return "", ErrUnavailable
	}

	input := path
	if w.normalize != nil {
		dir, err := os.MkdirTemp("", "voicedeck-whisper-*")
		if err != nil {
			return "", err
		}
		defer os.RemoveAll(dir)

		input, err = w.normalize.Normalize(ctx, path, dir, whisperRate)
		if err != nil {
			return "", fmt.Errorf("prepare audio for transcription: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, w.bin, "-m", w.model, "-f", input, "-nt", "-np")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	w.logger.Debug("transcribing", "path", path)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("whisper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.Join(strings.Fields(stdout.String()), " ")
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
