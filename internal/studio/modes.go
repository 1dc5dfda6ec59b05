package studio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgnsrekt/voicedeck/internal/errs"
	"github.com/dgnsrekt/voicedeck/internal/modes"
	"github.com/dgnsrekt/voicedeck/internal/nav"
	"github.com/dgnsrekt/voicedeck/internal/pipeline"
)

const defaultEmotion = "Normal tone"

var speakerValidator = nav.ValidatorFunc(func(s string) error {
	if _, ok := modes.ResolveSpeaker(s); !ok {
		return errs.Invalid("speaker", "%q is not a listed speaker", strings.TrimSpace(s))
	}
	return nil
})

func (s *Studio) customVoice(ctx context.Context) error {
	var (
		speaker modes.Speaker
		emotion string
		speed   float64
	)

	pickSpeaker := func(context.Context) (nav.Signal, error) {
		s.heading("Custom Voice")
		rows := make([][]string, len(modes.Speakers))
		for i, sp := range modes.Speakers {
			rows[i] = []string{strconv.Itoa(i + 1), sp.Name, sp.Language}
		}
		fmt.Fprintln(s.out, s.styles.Table([]string{"#", "Speaker", "Language"}, rows))

		res, err := s.nav.Ask(nav.Prompt{Kind: nav.KindText, Label: "Speaker (number or name)", Validator: speakerValidator})
		if err != nil || res.Signal != nav.Value {
			return res.Signal, err
		}
		speaker, _ = modes.ResolveSpeaker(res.Value)
		return nav.Value, nil
	}

	pickEmotion := func(context.Context) (nav.Signal, error) {
		for {
			fmt.Fprintln(s.out, presetTable(s.styles, "Emotion", modes.Emotions, func(v string) string { return v }))
			res, err := s.nav.Ask(nav.Prompt{Kind: nav.KindKey, Label: "Emotion", Keys: modes.PresetKeys(modes.Emotions)})
			if err != nil || res.Signal != nav.Value {
				return res.Signal, err
			}
			preset, _ := modes.FindPreset(modes.Emotions, res.Value)
			if preset.Value != "" {
				emotion = preset.Value
				return nav.Value, nil
			}

			custom, err := s.nav.Ask(nav.Prompt{Kind: nav.KindText, Label: "Describe the emotion"})
			if err != nil {
				return nav.Quit, err
			}
			switch custom.Signal {
			case nav.Quit:
				return nav.Quit, nil
			case nav.Back:
				continue
			}
			emotion = strings.TrimSpace(custom.Value)
			if emotion == "" {
				emotion = defaultEmotion
			}
			return nav.Value, nil
		}
	}

	pickSpeed := func(context.Context) (nav.Signal, error) {
		fmt.Fprintln(s.out, presetTable(s.styles, "Speed", modes.Speeds, func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "x" }))
		res, err := s.nav.Ask(nav.Prompt{Kind: nav.KindKey, Label: "Speed", Keys: modes.PresetKeys(modes.Speeds)})
		if err != nil || res.Signal != nav.Value {
			return res.Signal, err
		}
		preset, _ := modes.FindPreset(modes.Speeds, res.Value)
		speed = preset.Value
		fmt.Fprintln(s.out, s.styles.Help.Render(fmt.Sprintf("  %s · %s · %.1fx", speaker.Name, emotion, speed)))
		return nav.Value, nil
	}

	_, err := runSteps(ctx, pickSpeaker, pickEmotion, pickSpeed, s.speak(func(text string) pipeline.Request {
		return pipeline.CustomVoice{Text: text, Speaker: speaker.Name, Emotion: emotion, Speed: speed}
	}))
	return err
}

func (s *Studio) voiceDesign(ctx context.Context) error {
	var description string

	describe := func(context.Context) (nav.Signal, error) {
		s.heading("Voice Design")
		s.panel(
			"Describe the voice: gender, age, pitch, pace, accent and mood.",
			`e.g. "A deep, calm male narrator with a slight British accent"`,
			"You can also drop a .txt file containing the description.",
		)
		res, err := s.nav.Ask(nav.Prompt{
			Kind:      nav.KindText,
			Label:     "Describe the voice",
			Validator: nav.NonEmpty("description"),
			AllowFile: true,
		})
		if err != nil || res.Signal != nav.Value {
			return res.Signal, err
		}
		description = strings.TrimSpace(res.Value)
		return nav.Value, nil
	}

	_, err := runSteps(ctx, describe, s.speak(func(text string) pipeline.Request {
		return pipeline.VoiceDesign{Text: text, Description: description}
	}))
	return err
}

func presetTable[T any](st Styles, title string, presets []modes.Preset[T], format func(T) string) string {
	rows := make([][]string, len(presets))
	for i, p := range presets {
		value := format(p.Value)
		if value == "" {
			value = "your own description"
		}
		rows[i] = []string{p.Key, p.Label, value}
	}
	return st.Table([]string{"Key", title, ""}, rows)
}
