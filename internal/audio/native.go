package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/wav"
)

// resampleQuality is the beep resampler quality (1 fastest, 64 best).
const resampleQuality = 4

// Native converts decodable input to 16-bit WAV in pure Go.
type Native struct{}

// NewNative creates the pure-Go converter.
func NewNative() *Native {
	return &Native{}
}

func (c *Native) Name() string { return "native" }

func (c *Native) Available() bool { return true }

func (c *Native) Supports(srcExt, dstExt string) bool {
	return dstExt == "wav" && Decodable("x."+srcExt)
}

// Convert decodes req.Src, downmixes and resamples as requested, and encodes
// WAV into req.Dst through a temporary file.
func (c *Native) Convert(ctx context.Context, req Request) error {
	if Ext(req.Dst) != "wav" {
		return fmt.Errorf("%w: native converter only writes wav", ErrConversionFailed)
	}

	f, err := os.Open(req.Src)
	if err != nil {
		return err
	}
	defer f.Close()

	stream, format, err := decode(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	defer stream.Close()

	var s beep.Streamer = stream
	channels := format.NumChannels
	if req.Channels == 1 {
		s = effects.Mono(s)
		channels = 1
	} else if req.Channels > 1 {
		channels = req.Channels
	}

	rate := format.SampleRate
	if req.SampleRate > 0 && beep.SampleRate(req.SampleRate) != format.SampleRate {
		rate = beep.SampleRate(req.SampleRate)
		s = beep.Resample(resampleQuality, format.SampleRate, rate, s)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(req.Dst), ".convert-*.wav")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	out := beep.Format{SampleRate: rate, NumChannels: channels, Precision: 2}
	if err := wav.Encode(tmp, s, out); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), req.Dst)
}
