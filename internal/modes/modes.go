// Package modes describes the three generation modes and the fixed presets
// each one offers.
package modes

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a generation mode.
type ID string

const (
	CustomVoice  ID = "CustomVoice"
	VoiceDesign  ID = "VoiceDesign"
	VoiceCloning ID = "VoiceCloning"
)

// AssetOrg is the Hugging Face organization hosting the model bundles.
const AssetOrg = "mlx-community"

// Descriptor is the immutable description of a mode.
type Descriptor struct {
	ID          ID
	Key         string // menu key
	Label       string
	Description string
	Assets      []string // required asset ids (folder names under the models root)
	Folder      string   // output subfolder
}

// Catalog holds the mode descriptors in menu order.
var Catalog = []Descriptor{
	{
		ID:          CustomVoice,
		Key:         "1",
		Label:       "Custom Voice",
		Description: "Preset speakers with emotion and speed control",
		Assets:      []string{"Qwen3-TTS-12Hz-1.7B-CustomVoice-8bit"},
		Folder:      "CustomVoice",
	},
	{
		ID:          VoiceDesign,
		Key:         "2",
		Label:       "Voice Design",
		Description: "Describe a voice in words",
		Assets:      []string{"Qwen3-TTS-12Hz-1.7B-VoiceDesign-8bit"},
		Folder:      "VoiceDesign",
	},
	{
		ID:          VoiceCloning,
		Key:         "3",
		Label:       "Voice Cloning",
		Description: "Clone a voice from reference audio",
		Assets:      []string{"Qwen3-TTS-12Hz-1.7B-Base-8bit"},
		Folder:      "Clones",
	},
}

// Lookup returns the descriptor for id.
func Lookup(id ID) (Descriptor, bool) {
	for _, d := range Catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Parse resolves a mode by id, menu key or folder name, case-insensitively.
func Parse(s string) (Descriptor, error) {
	for _, d := range Catalog {
		if strings.EqualFold(s, string(d.ID)) || s == d.Key || strings.EqualFold(s, d.Folder) {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("unknown mode %q", s)
}

// Speaker is a preset voice of the CustomVoice model.
type Speaker struct {
	Name     string
	Language string
}

// Speakers lists the preset voices grouped by language.
var Speakers = []Speaker{
	{"Ryan", "English"},
	{"Aiden", "English"},
	{"Serena", "English"},
	{"Vivian", "English"},
	{"Vivian", "Chinese"},
	{"Serena", "Chinese"},
	{"Uncle_Fu", "Chinese"},
	{"Dylan", "Chinese"},
	{"Eric", "Chinese"},
	{"Ono_Anna", "Japanese"},
	{"Sohee", "Korean"},
}

// ResolveSpeaker accepts a 1-based index into Speakers or a speaker name.
func ResolveSpeaker(input string) (Speaker, bool) {
	input = strings.TrimSpace(input)
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(Speakers) {
			return Speakers[n-1], true
		}
		return Speaker{}, false
	}
	for _, s := range Speakers {
		if strings.EqualFold(s.Name, input) {
			return s, true
		}
	}
	return Speaker{}, false
}

// Preset is a numbered menu choice carrying a value.
type Preset[T any] struct {
	Key   string
	Label string
	Value T
}

// Emotions are the instruction presets; an empty value means the user writes one.
var Emotions = []Preset[string]{
	{"1", "Normal", "Normal tone"},
	{"2", "Sad", "Sad and crying, speaking slowly"},
	{"3", "Excited", "Excited and happy, speaking very fast"},
	{"4", "Angry", "Angry and shouting"},
	{"5", "Whisper", "Whispering quietly"},
	{"6", "Custom", ""},
}

// Speeds are the speed multipliers.
var Speeds = []Preset[float64]{
	{"1", "Normal", 1.0},
	{"2", "Fast", 1.3},
	{"3", "Slow", 0.8},
}

// FindPreset returns the preset with the given key.
func FindPreset[T any](presets []Preset[T], key string) (Preset[T], bool) {
	for _, p := range presets {
		if p.Key == key {
			return p, true
		}
	}
	return Preset[T]{}, false
}

// PresetKeys returns the menu keys of presets in order.
func PresetKeys[T any](presets []Preset[T]) []string {
	keys := make([]string, len(presets))
	for i, p := range presets {
		keys[i] = p.Key
	}
	return keys
}
