// Package audio decodes reference audio and converts between formats through
// an ordered chain of converters.
package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"

	"github.com/dgnsrekt/voicedeck/internal/errs"
)

// ErrUnsupportedFormat is returned when no pure-Go decoder handles a file.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Probe describes a decoded audio file.
type Probe struct {
	Path       string
	Format     string
	SampleRate int
	Channels   int
	Frames     int
	Duration   time.Duration
}

// Ext returns the lower-case extension of path without the dot.
func Ext(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Decodable reports whether path has an extension with a pure-Go decoder.
func Decodable(path string) bool {
	switch Ext(path) {
	case "wav", "mp3", "flac":
		return true
	}
	return false
}

func decode(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch Ext(f.Name()) {
	case "wav":
		return wav.Decode(f)
	case "mp3":
		return mp3.Decode(f)
	case "flac":
		return flac.Decode(f)
	}
	return nil, beep.Format{}, fmt.Errorf("%w: .%s", ErrUnsupportedFormat, Ext(f.Name()))
}

// ProbeFile decodes the header of path and reports its duration. Missing,
// undecodable and empty files are validation errors.
func ProbeFile(path string) (Probe, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Probe{}, errs.Invalid("audio", "file not found: %s", path)
		}
		return Probe{}, errs.Invalid("audio", "cannot open %s: %v", path, err)
	}
	defer f.Close()

	stream, format, err := decode(f)
	if err != nil {
		return Probe{}, errs.Invalid("audio", "cannot decode %s: %v", filepath.Base(path), err)
	}
	defer stream.Close()

	frames := stream.Len()
	if frames <= 0 {
		return Probe{}, errs.Invalid("audio", "%s contains no audio", filepath.Base(path))
	}

	return Probe{
		Path:       path,
		Format:     Ext(path),
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
		Frames:     frames,
		Duration:   format.SampleRate.D(frames),
	}, nil
}

// LoadSamples decodes path into mono float samples.
func LoadSamples(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	stream, format, err := decode(f)
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	samples := make([]float32, 0, max(stream.Len(), 0))
	buf := make([][2]float64, 4096)
	for {
		n, ok := stream.Stream(buf)
		for _, s := range buf[:n] {
			samples = append(samples, float32((s[0]+s[1])/2))
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, 0, err
	}

	return samples, int(format.SampleRate), nil
}
