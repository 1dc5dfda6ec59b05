package modes

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  ID
	}{
		{"CustomVoice", CustomVoice},
		{"voicedesign", VoiceDesign},
		{"3", VoiceCloning},
		{"clones", VoiceCloning},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.input, err)
			continue
		}
		if got.ID != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.input, got.ID, tt.want)
		}
	}

	if _, err := Parse("karaoke"); err == nil {
		t.Error("Parse() expected error for unknown mode")
	}
}

func TestCatalogAssets(t *testing.T) {
	for _, d := range Catalog {
		if len(d.Assets) == 0 {
			t.Errorf("mode %s has no required assets", d.ID)
		}
		if got, ok := Lookup(d.ID); !ok || got.Label != d.Label {
			t.Errorf("Lookup(%s) mismatch", d.ID)
		}
	}
}

func TestResolveSpeaker(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1", "Ryan", true},
		{"7", "Uncle_Fu", true},
		{"sohee", "Sohee", true},
		{"0", "", false},
		{"12", "", false},
		{"Nobody", "", false},
		{"1a", "", false},
	}

	for _, tt := range tests {
		got, ok := ResolveSpeaker(tt.input)
		if ok != tt.ok || got.Name != tt.want {
			t.Errorf("ResolveSpeaker(%q) = (%q, %v), want (%q, %v)", tt.input, got.Name, ok, tt.want, tt.ok)
		}
	}
}

func TestFindPreset(t *testing.T) {
	speed, ok := FindPreset(Speeds, "2")
	if !ok || speed.Value != 1.3 {
		t.Errorf("FindPreset(Speeds, 2) = %+v, %v", speed, ok)
	}

	custom, ok := FindPreset(Emotions, "6")
	if !ok || custom.Value != "" {
		t.Errorf("custom emotion preset should carry no instruction, got %+v", custom)
	}

	if _, ok := FindPreset(Speeds, "9"); ok {
		t.Error("FindPreset() found a missing key")
	}

	keys := PresetKeys(Emotions)
	if len(keys) != 6 || keys[0] != "1" || keys[5] != "6" {
		t.Errorf("PresetKeys(Emotions) = %v", keys)
	}
}
