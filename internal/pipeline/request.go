package pipeline

import (
	"strings"

	"github.com/dgnsrekt/voicedeck/internal/errs"
	"github.com/dgnsrekt/voicedeck/internal/modes"
	"github.com/dgnsrekt/voicedeck/internal/tts"
)

// QuickCloneFolder receives clones made without a library voice.
const QuickCloneFolder = "QuickClones"

// emptyTranscript is passed to the model when a reference has no transcript.
const emptyTranscript = "."

// Request is a mode-specific generation request: CustomVoice, VoiceDesign or
// Clone.
type Request interface {
	Mode() modes.ID
	text() string
	validate() error
	synthesis() tts.Request
	subfolder() string
}

// CustomVoice speaks text with a preset speaker.
type CustomVoice struct {
	Text    string
	Speaker string
	// Emotion is an instruction such as "Sad and crying". Optional.
	Emotion string
	// Speed defaults to 1.0.
	Speed float64
}

func (r CustomVoice) Mode() modes.ID { return modes.CustomVoice }
func (r CustomVoice) text() string   { return r.Text }
func (r CustomVoice) subfolder() string {
	return ""
}

func (r CustomVoice) validate() error {
	if strings.TrimSpace(r.Speaker) == "" {
		return errs.Invalid("speaker", "must not be empty")
	}
	if r.Speed < 0 {
		return errs.Invalid("speed", "must be positive")
	}
	return nil
}

func (r CustomVoice) synthesis() tts.Request {
	speed := r.Speed
	if speed == 0 {
		speed = 1.0
	}
	return tts.Request{
		Mode:     modes.CustomVoice,
		Text:     strings.TrimSpace(r.Text),
		Speaker:  strings.ToLower(r.Speaker),
		Speed:    speed,
		Instruct: r.Emotion,
	}
}

// VoiceDesign speaks text in a voice described in words.
type VoiceDesign struct {
	Text        string
	Description string
}

func (r VoiceDesign) Mode() modes.ID    { return modes.VoiceDesign }
func (r VoiceDesign) text() string      { return r.Text }
func (r VoiceDesign) subfolder() string { return "" }

func (r VoiceDesign) validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return errs.Invalid("description", "must not be empty")
	}
	return nil
}

func (r VoiceDesign) synthesis() tts.Request {
	return tts.Request{
		Mode:     modes.VoiceDesign,
		Text:     strings.TrimSpace(r.Text),
		Instruct: strings.TrimSpace(r.Description),
	}
}

// Clone speaks text in the voice of a reference recording. VoiceID and
// VoiceName are set when the reference comes from the library; otherwise
// the request is a quick clone.
type Clone struct {
	Text       string
	RefAudio   string
	Transcript string
	VoiceID    string
	VoiceName  string
}

func (r Clone) Mode() modes.ID { return modes.VoiceCloning }
func (r Clone) text() string   { return r.Text }

func (r Clone) subfolder() string {
	if r.VoiceID == "" {
		return QuickCloneFolder
	}
	return folderName(r.VoiceName)
}

func (r Clone) validate() error {
	if strings.TrimSpace(r.RefAudio) == "" {
		return errs.Invalid("reference audio", "must not be empty")
	}
	return nil
}

func (r Clone) synthesis() tts.Request {
	transcript := strings.TrimSpace(r.Transcript)
	if transcript == "" {
		transcript = emptyTranscript
	}
	return tts.Request{
		Mode:     modes.VoiceCloning,
		Text:     strings.TrimSpace(r.Text),
		RefAudio: r.RefAudio,
		RefText:  transcript,
	}
}
