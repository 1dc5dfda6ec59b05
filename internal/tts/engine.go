package tts

import (
	"context"
	"time"

	"github.com/dgnsrekt/voicedeck/internal/modes"
)

// Request contains the parameters of one synthesis call. Which fields apply
// depends on Mode.
type Request struct {
	Mode      modes.ID
	ModelPath string
	Text      string

	// CustomVoice
	Speaker string
	Speed   float64

	// Instruct is the emotion instruction (CustomVoice) or the voice
	// description (VoiceDesign).
	Instruct string

	// VoiceCloning
	RefAudio string
	RefText  string
}

// Audio is synthesized mono audio.
type Audio struct {
	// Samples are float samples in [-1, 1].
	Samples []float32
	// SampleRate is the audio sample rate in Hz.
	SampleRate int
}

// Duration returns the playing time of the samples.
func (a *Audio) Duration() time.Duration {
	if a == nil || a.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(a.Samples)) * time.Second / time.Duration(a.SampleRate)
}

// Engine is the interface for text-to-speech synthesis.
type Engine interface {
	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, req Request) (*Audio, error)
	// Name returns the engine identifier.
	Name() string
}

// ModeSupporter is implemented by engines that only handle some modes.
type ModeSupporter interface {
	SupportsMode(modes.ID) bool
}

func supportsMode(e Engine, mode modes.ID) bool {
	if ms, ok := e.(ModeSupporter); ok {
		return ms.SupportsMode(mode)
	}
	return true
}
