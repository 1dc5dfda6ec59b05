package tts

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/dgnsrekt/voicedeck/internal/modes"
)

// mockEngine is a test implementation of Engine.
type mockEngine struct {
	name string
}

func (m *mockEngine) Name() string {
	return m.name
}

func (m *mockEngine) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	return &Audio{
		Samples:    make([]float32, 240),
		SampleRate: 24000,
	}, nil
}

// presetOnlyEngine only handles CustomVoice.
type presetOnlyEngine struct {
	mockEngine
}

func (p *presetOnlyEngine) SupportsMode(mode modes.ID) bool {
	return mode == modes.CustomVoice
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(&mockEngine{name: "test"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names := reg.List(); !slices.Equal(names, []string{"test"}) {
		t.Errorf("List() = %v, want [test]", names)
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	engine := &mockEngine{name: "test"}

	if err := reg.Register(engine); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	err := reg.Register(engine)
	if !errors.Is(err, ErrEngineExists) {
		t.Errorf("expected ErrEngineExists, got %v", err)
	}
}

func TestRegistry_List(t *testing.T) {
	reg := NewRegistry()

	if names := reg.List(); len(names) != 0 {
		t.Errorf("expected empty list, got %v", names)
	}

	reg.Register(&mockEngine{name: "gamma"})
	reg.Register(&mockEngine{name: "alpha"})
	reg.Register(&mockEngine{name: "beta"})

	names := reg.List()
	if !slices.Equal(names, []string{"alpha", "beta", "gamma"}) {
		t.Errorf("List() = %v, want sorted names", names)
	}
}

func TestRegistry_ForMode(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.ForMode(modes.VoiceDesign); !errors.Is(err, ErrNoEngineForMode) {
		t.Errorf("expected ErrNoEngineForMode on empty registry, got %v", err)
	}

	reg.Register(&presetOnlyEngine{mockEngine{name: "preset"}})
	reg.Register(&mockEngine{name: "universal"})

	got, err := reg.ForMode(modes.CustomVoice)
	if err != nil || got.Name() != "preset" {
		t.Errorf("ForMode(CustomVoice) = %v, %v; want default engine", got, err)
	}

	got, err = reg.ForMode(modes.VoiceCloning)
	if err != nil || got.Name() != "universal" {
		t.Errorf("ForMode(VoiceCloning) = %v, %v; want universal", got, err)
	}
}

func TestRegistry_ForModePrefersFirstRegistered(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockEngine{name: "zeta"})
	reg.Register(&mockEngine{name: "alpha"})

	for _, mode := range []modes.ID{modes.CustomVoice, modes.VoiceDesign, modes.VoiceCloning} {
		got, err := reg.ForMode(mode)
		if err != nil || got.Name() != "zeta" {
			t.Errorf("ForMode(%s) = %v, %v; want zeta", mode, got, err)
		}
	}
}
