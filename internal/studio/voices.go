package studio

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dgnsrekt/voicedeck/internal/errs"
	"github.com/dgnsrekt/voicedeck/internal/nav"
	"github.com/dgnsrekt/voicedeck/internal/pipeline"
	"github.com/dgnsrekt/voicedeck/internal/voices"
)

// maxKeyVoices is the largest library picked with a single keystroke.
const maxKeyVoices = 9

var managerItems = [][]string{
	{"1", "Saved Voices", "Speak with an enrolled voice"},
	{"2", "Enroll Voice", "Save a reference recording to the library"},
	{"3", "Quick Clone", "Clone from a recording without saving it"},
	{"4", "Delete Voice", "Remove a voice from the library"},
	{"5", "Update Voice", "Rename, edit or re-transcribe a voice"},
}

// voiceManager is the Voice Cloning mode. Back returns to the mode menu and
// so does Quit from any sub-flow.
func (s *Studio) voiceManager(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.heading("Voice Cloning")
		fmt.Fprintln(s.out, s.styles.Table([]string{"Key", "Action", ""}, managerItems))
		res, err := s.nav.Ask(nav.Prompt{Kind: nav.KindKey, Label: "Select action", Keys: []string{"1", "2", "3", "4", "5"}})
		if err != nil {
			return err
		}
		if res.Signal != nav.Value {
			return nil
		}

		var sig nav.Signal
		switch res.Value {
		case "1":
			sig, err = s.savedVoice(ctx)
		case "2":
			sig, err = s.enroll(ctx)
		case "3":
			sig, err = s.quickClone(ctx)
		case "4":
			sig, err = s.deleteVoice(ctx)
		case "5":
			sig, err = s.updateVoice(ctx)
		}
		if err != nil {
			return err
		}
		if sig == nav.Quit {
			return nil
		}
	}
}

// pickVoice lists the library and reads a choice. An empty library reports
// Back.
func (s *Studio) pickVoice(label string) (voices.Profile, nav.Signal, error) {
	list := slices.Collect(s.voices.List())
	if len(list) == 0 {
		s.warn("No saved voices found. Enroll a voice first.")
		return voices.Profile{}, nav.Back, nil
	}

	rows := make([][]string, len(list))
	for i, p := range list {
		mark := "—"
		if p.Transcript != "" {
			mark = "✓"
		}
		rows[i] = []string{strconv.Itoa(i + 1), p.Name, mark, fmt.Sprintf("%.1fs", p.Duration.Seconds())}
	}
	fmt.Fprintln(s.out, s.styles.Table([]string{"#", "Name", "Transcript", "Length"}, rows))

	prompt := nav.Prompt{Kind: nav.KindText, Label: label, Validator: indexValidator(len(list))}
	if len(list) <= maxKeyVoices {
		keys := make([]string, len(list))
		for i := range list {
			keys[i] = strconv.Itoa(i + 1)
		}
		prompt = nav.Prompt{Kind: nav.KindKey, Label: label, Keys: keys}
	}

	res, err := s.nav.Ask(prompt)
	if err != nil || res.Signal != nav.Value {
		return voices.Profile{}, res.Signal, err
	}
	n, _ := strconv.Atoi(strings.TrimSpace(res.Value))
	return list[n-1], nav.Value, nil
}

func indexValidator(n int) nav.Validator {
	return nav.ValidatorFunc(func(v string) error {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || i < 1 || i > n {
			return errs.Invalid("selection", "enter a number from 1 to %d", n)
		}
		return nil
	})
}

func (s *Studio) savedVoice(ctx context.Context) (nav.Signal, error) {
	var profile voices.Profile

	pick := func(context.Context) (nav.Signal, error) {
		s.heading("Saved Voices")
		p, sig, err := s.pickVoice("Pick a voice")
		if err != nil || sig != nav.Value {
			return sig, err
		}
		profile = p
		if profile.Transcript == "" {
			s.warn("%s has no transcript; cloning quality may suffer.", profile.Name)
		}
		return nav.Value, nil
	}

	return runSteps(ctx, pick, s.speak(func(text string) pipeline.Request {
		return pipeline.Clone{
			Text:       text,
			RefAudio:   profile.AudioPath,
			Transcript: profile.Transcript,
			VoiceID:    profile.ID,
			VoiceName:  profile.Name,
		}
	}))
}

// reference collects a recording and its transcript. Normalized copies are
// written under a temp dir the caller removes with cleanup.
type reference struct {
	studio     *Studio
	audio      string
	transcript string
	dir        string
}

func (s *Studio) newReference() *reference {
	return &reference{studio: s}
}

func (r *reference) cleanup() {
	if r.dir != "" {
		os.RemoveAll(r.dir)
		r.dir = ""
	}
}

func (r *reference) askAudio(ctx context.Context) (nav.Signal, error) {
	s := r.studio
	for {
		res, err := s.nav.Ask(nav.Prompt{
			Kind:      nav.KindText,
			Label:     "Drag & drop reference audio file",
			Validator: nav.ExistingFile("reference audio"),
		})
		if err != nil || res.Signal != nav.Value {
			return res.Signal, err
		}
		path, _ := nav.CleanPath(res.Value)

		normalized, err := r.normalize(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nav.Quit, ctx.Err()
			}
			s.report(err)
			continue
		}
		r.audio = normalized
		return nav.Value, nil
	}
}

func (r *reference) normalize(ctx context.Context, path string) (string, error) {
	s := r.studio
	if s.norm == nil {
		return path, nil
	}
	if r.dir == "" {
		dir, err := os.MkdirTemp(s.tempDir, "voicedeck-ref-")
		if err != nil {
			return "", fmt.Errorf("create temp dir: %w", err)
		}
		r.dir = dir
	}
	return s.norm.Normalize(ctx, path, r.dir, s.rate)
}

func (r *reference) askTranscript(ctx context.Context) (nav.Signal, error) {
	s := r.studio
	s.panel(
		"For best cloning quality, type exactly what the person says in the audio.",
		"You can also drop a .txt file containing the transcript.",
	)
	res, err := s.nav.Ask(nav.Prompt{Kind: nav.KindText, Label: "Transcript", AllowFile: true})
	if err != nil || res.Signal != nav.Value {
		return res.Signal, err
	}
	r.transcript = strings.TrimSpace(res.Value)
	if r.transcript == "" {
		text, err := s.offerTranscription(ctx, r.audio)
		if err != nil {
			return nav.Quit, err
		}
		r.transcript = text
	}
	return nav.Value, nil
}

// offerTranscription asks whether to transcribe path when a transcriber is
// available. Failures degrade to an empty transcript.
func (s *Studio) offerTranscription(ctx context.Context, path string) (string, error) {
	if !s.tr.Available() {
		return "", nil
	}
	ok, err := s.confirm("Transcribe automatically?")
	if err != nil || !ok {
		return "", err
	}

	fmt.Fprintln(s.out, s.styles.Help.Render("  Transcribing..."))
	text, err := s.tr.Transcribe(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.warn("Transcription failed: %v", err)
		return "", nil
	}
	fmt.Fprintln(s.out, s.styles.Help.Render("  "+text))
	return text, nil
}

func (s *Studio) enroll(ctx context.Context) (nav.Signal, error) {
	var name string
	ref := s.newReference()
	defer ref.cleanup()

	askName := func(context.Context) (nav.Signal, error) {
		s.heading("Enroll Voice")
		res, err := s.nav.Ask(nav.Prompt{Kind: nav.KindText, Label: "Voice name", Validator: nav.NonEmpty("name")})
		if err != nil || res.Signal != nav.Value {
			return res.Signal, err
		}
		name = strings.TrimSpace(res.Value)
		return nav.Value, nil
	}

	sig, err := runSteps(ctx, askName, ref.askAudio, ref.askTranscript)
	if err != nil || sig != nav.Value {
		return sig, err
	}

	p, err := s.voices.Enroll(name, ref.audio, ref.transcript)
	if err != nil {
		s.report(err)
		return nav.Back, nil
	}
	s.success("Voice '%s' enrolled.", p.Name)
	return nav.Value, nil
}

// quickClone clones from a recording without touching the library.
func (s *Studio) quickClone(ctx context.Context) (nav.Signal, error) {
	ref := s.newReference()
	defer ref.cleanup()

	heading := func(ctx context.Context) (nav.Signal, error) {
		s.heading("Quick Clone")
		return ref.askAudio(ctx)
	}

	return runSteps(ctx, heading, ref.askTranscript, s.speak(func(text string) pipeline.Request {
		return pipeline.Clone{Text: text, RefAudio: ref.audio, Transcript: ref.transcript}
	}))
}

func (s *Studio) deleteVoice(ctx context.Context) (nav.Signal, error) {
	s.heading("Delete Voice")
	p, sig, err := s.pickVoice("Pick voice to delete")
	if err != nil || sig != nav.Value {
		return sig, err
	}

	ok, err := s.confirm(fmt.Sprintf("Delete '%s'?", p.Name))
	if err != nil {
		return nav.Quit, err
	}
	if !ok {
		s.warn("Cancelled.")
		return nav.Back, nil
	}

	report, err := s.voices.Delete(p.ID)
	if err != nil {
		s.report(err)
		return nav.Back, nil
	}
	if report.AudioMissing {
		s.warn("The audio for '%s' was already missing.", p.Name)
	}
	s.success("Voice '%s' deleted.", p.Name)
	return nav.Value, nil
}

func (s *Studio) updateVoice(ctx context.Context) (nav.Signal, error) {
	var profile voices.Profile

	pick := func(context.Context) (nav.Signal, error) {
		s.heading("Update Voice")
		p, sig, err := s.pickVoice("Pick voice to update")
		if err != nil || sig != nav.Value {
			return sig, err
		}
		profile = p
		return nav.Value, nil
	}

	edit := func(ctx context.Context) (nav.Signal, error) {
		for {
			items := [][]string{
				{"1", "Rename", profile.Name},
				{"2", "Edit transcript", transcriptPreview(profile.Transcript)},
			}
			keys := []string{"1", "2"}
			if s.tr.Available() {
				items = append(items, []string{"3", "Re-transcribe", "Transcribe the saved recording"})
				keys = append(keys, "3")
			}
			fmt.Fprintln(s.out, s.styles.Table([]string{"Key", "Change", ""}, items))

			res, err := s.nav.Ask(nav.Prompt{Kind: nav.KindKey, Label: "Select change", Keys: keys})
			if err != nil || res.Signal != nav.Value {
				return res.Signal, err
			}

			u, sig, err := s.change(ctx, profile, res.Value)
			if err != nil {
				return nav.Quit, err
			}
			switch sig {
			case nav.Quit:
				return nav.Quit, nil
			case nav.Back:
				continue
			}

			updated, err := s.voices.Update(profile.ID, u)
			if err != nil {
				s.report(err)
				continue
			}
			s.success("Voice '%s' updated.", updated.Name)
			return nav.Value, nil
		}
	}

	return runSteps(ctx, pick, edit)
}

// change reads the new value for one field of p. Back means the change was
// abandoned.
func (s *Studio) change(ctx context.Context, p voices.Profile, key string) (voices.Update, nav.Signal, error) {
	var u voices.Update
	switch key {
	case "1":
		res, err := s.nav.Ask(nav.Prompt{Kind: nav.KindText, Label: "New name", Validator: nav.NonEmpty("name")})
		if err != nil || res.Signal != nav.Value {
			return u, res.Signal, err
		}
		u.Name = &res.Value
	case "2":
		res, err := s.nav.Ask(nav.Prompt{Kind: nav.KindText, Label: "New transcript", AllowFile: true})
		if err != nil || res.Signal != nav.Value {
			return u, res.Signal, err
		}
		u.Transcript = &res.Value
	case "3":
		fmt.Fprintln(s.out, s.styles.Help.Render("  Transcribing..."))
		text, err := s.tr.Transcribe(ctx, p.AudioPath)
		if err != nil {
			if ctx.Err() != nil {
				return u, nav.Quit, ctx.Err()
			}
			s.warn("Transcription failed: %v", err)
			return u, nav.Back, nil
		}
		fmt.Fprintln(s.out, s.styles.Help.Render("  "+text))
		ok, err := s.confirm("Save this transcript?")
		if err != nil || !ok {
			return u, nav.Back, err
		}
		u.Transcript = &text
	}
	return u, nav.Value, nil
}

func transcriptPreview(t string) string {
	if t == "" {
		return "—"
	}
	r := []rune(t)
	if len(r) > 40 {
		return string(r[:40]) + "…"
	}
	return t
}
