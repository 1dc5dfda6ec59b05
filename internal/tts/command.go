package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/voicedeck/internal/audio"
	"github.com/dgnsrekt/voicedeck/internal/modes"
)

var (
	// ErrSynthesizerNotFound is returned when the synthesis command is not found.
	ErrSynthesizerNotFound = errors.New("synthesis command not found")
	// ErrNoModelSpecified is returned when a request carries no model path.
	ErrNoModelSpecified = errors.New("no model path specified")
	// ErrSynthesisFailed is returned when TTS synthesis fails.
	ErrSynthesisFailed = errors.New("TTS synthesis failed")
)

// outputPrefix is the file prefix the synthesizer writes segments under.
const outputPrefix = "segment"

// CommandConfig holds configuration for the subprocess engine.
type CommandConfig struct {
	// Command is the synthesizer invocation, split on whitespace
	// (e.g. "python3 -m mlx_audio.tts.generate").
	Command string
	// TempDir is where per-call output directories are created. Empty uses
	// the system default.
	TempDir string
	// Timeout bounds one generation. Zero means no limit.
	Timeout time.Duration
}

// CommandEngine implements Engine by running an mlx-audio style generator
// that writes WAV segments into an output directory.
type CommandEngine struct {
	argv    []string
	tempDir string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommandEngine creates a subprocess engine.
func NewCommandEngine(cfg CommandConfig, logger *slog.Logger) (*CommandEngine, error) {
	argv := strings.Fields(cfg.Command)
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrSynthesizerNotFound)
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSynthesizerNotFound, argv[0])
	}
	argv[0] = path

	return &CommandEngine{
		argv:    argv,
		tempDir: cfg.TempDir,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Name returns the engine identifier.
func (e *CommandEngine) Name() string {
	return "mlx-audio"
}

// Args builds the generator arguments for req, writing into outDir.
func (e *CommandEngine) Args(req Request, outDir string) []string {
	args := append([]string{}, e.argv[1:]...)
	args = append(args,
		"--model", req.ModelPath,
		"--text", req.Text,
		"--output_path", outDir,
		"--file_prefix", outputPrefix,
		"--audio_format", "wav",
	)

	switch req.Mode {
	case modes.CustomVoice:
		if req.Speaker != "" {
			args = append(args, "--voice", req.Speaker)
		}
		if req.Instruct != "" {
			args = append(args, "--instruct", req.Instruct)
		}
		if req.Speed > 0 {
			args = append(args, "--speed", strconv.FormatFloat(req.Speed, 'f', -1, 64))
		}
	case modes.VoiceDesign:
		args = append(args, "--instruct", req.Instruct)
	case modes.VoiceCloning:
		args = append(args, "--ref_audio", req.RefAudio, "--ref_text", req.RefText)
	}

	return args
}

// Synthesize runs the generator and reads back every segment it produced.
func (e *CommandEngine) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if req.Text == "" {
		return nil, errors.New("empty text")
	}
	if req.ModelPath == "" {
		return nil, ErrNoModelSpecified
	}

	outDir, err := os.MkdirTemp(e.tempDir, "voicedeck-synth-")
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	args := e.Args(req, outDir)

	e.logger.Debug("running synthesizer",
		"binary", e.argv[0],
		"mode", req.Mode,
		"model", req.ModelPath,
		"text_length", len(req.Text),
	)

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.argv[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("%w: timed out after %s", ErrSynthesisFailed, e.timeout)
		}
		e.logger.Error("synthesizer failed",
			"error", err,
			"stderr", stderr.String(),
		)
		return nil, fmt.Errorf("%w: %v: %s", ErrSynthesisFailed, err, lastLine(stderr.String()))
	}

	segments, err := filepath.Glob(filepath.Join(outDir, outputPrefix+"*.wav"))
	if err != nil || len(segments) == 0 {
		return nil, fmt.Errorf("%w: no audio output", ErrSynthesisFailed)
	}
	sort.Strings(segments)

	result := &Audio{}
	for _, seg := range segments {
		samples, rate, err := audio.LoadSamples(seg)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrSynthesisFailed, filepath.Base(seg), err)
		}
		if result.SampleRate == 0 {
			result.SampleRate = rate
		} else if rate != result.SampleRate {
			return nil, fmt.Errorf("%w: segment sample rates differ (%d, %d)", ErrSynthesisFailed, result.SampleRate, rate)
		}
		result.Samples = append(result.Samples, samples...)
	}

	e.logger.Debug("synthesis complete",
		"segments", len(segments),
		"samples", len(result.Samples),
		"sample_rate", result.SampleRate,
	)

	return result, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
