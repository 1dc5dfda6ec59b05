package tts

import (
	"errors"
	"sort"
	"sync"

	"github.com/dgnsrekt/voicedeck/internal/modes"
)

var (
	// ErrEngineExists is returned when trying to register a duplicate engine.
	ErrEngineExists = errors.New("TTS engine already registered")
	// ErrNoEngineForMode is returned when no registered engine handles a mode.
	ErrNoEngineForMode = errors.New("no TTS engine supports this mode")
)

// Registry manages available TTS engines. The first engine registered is
// preferred for every mode it handles.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
	first   string
}

// NewRegistry creates a new TTS engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

// Register adds an engine to the registry.
func (r *Registry) Register(engine Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := engine.Name()
	if _, exists := r.engines[name]; exists {
		return ErrEngineExists
	}

	r.engines[name] = engine
	if r.first == "" {
		r.first = name
	}
	return nil
}

// ForMode returns the first registered engine when it handles mode, otherwise
// the first engine by name that does.
func (r *Registry) ForMode(mode modes.ID) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.engines[r.first]; ok && supportsMode(e, mode) {
		return e, nil
	}
	for _, name := range r.sortedNames() {
		if supportsMode(r.engines[name], mode) {
			return r.engines[name], nil
		}
	}
	return nil, ErrNoEngineForMode
}

// List returns all registered engine names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
