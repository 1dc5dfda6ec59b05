package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// ErrFFmpegNotFound is returned when ffmpeg is not installed.
var ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")

// ffmpegCodecs maps output extensions to encoder arguments.
var ffmpegCodecs = map[string][]string{
	"wav":  {"-c:a", "pcm_s16le"},
	"mp3":  {"-c:a", "libmp3lame", "-q:a", "2"},
	"m4a":  {"-c:a", "aac", "-b:a", "192k"},
	"flac": {"-c:a", "flac"},
	"aiff": {"-c:a", "pcm_s16be"},
}

// FFmpeg converts through an external ffmpeg binary.
type FFmpeg struct {
	ffmpegPath string
}

// NewFFmpeg resolves the ffmpeg binary. When it cannot be found the converter
// reports itself unavailable.
func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return &FFmpeg{}
	}
	return &FFmpeg{ffmpegPath: path}
}

func (c *FFmpeg) Name() string { return "ffmpeg" }

func (c *FFmpeg) Available() bool { return c.ffmpegPath != "" }

// Supports accepts any input ffmpeg can read and the mapped output formats.
func (c *FFmpeg) Supports(_, dstExt string) bool {
	_, ok := ffmpegCodecs[dstExt]
	return ok
}

// Convert runs ffmpeg -y -v error -i src [-ar rate] [-ac ch] <codec> dst.
func (c *FFmpeg) Convert(ctx context.Context, req Request) error {
	if c.ffmpegPath == "" {
		return ErrFFmpegNotFound
	}
	codec, ok := ffmpegCodecs[Ext(req.Dst)]
	if !ok {
		return fmt.Errorf("%w: unsupported output .%s", ErrConversionFailed, Ext(req.Dst))
	}

	args := []string{"-y", "-v", "error", "-i", req.Src}
	if req.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(req.SampleRate))
	}
	if req.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(req.Channels))
	}
	args = append(args, codec...)
	args = append(args, req.Dst)

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", ErrConversionFailed, bytes.TrimSpace(stderr.Bytes()))
	}

	return nil
}
