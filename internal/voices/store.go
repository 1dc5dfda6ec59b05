// Package voices is the persistent library of enrolled voice profiles. Each
// profile owns a private copy of its reference audio.
package voices

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"github.com/dgnsrekt/voicedeck/internal/audio"
	"github.com/dgnsrekt/voicedeck/internal/errs"
)

const (
	manifestName    = "library.yaml"
	audioDir        = "audio"
	manifestVersion = 1
)

// Profile is an enrolled voice. AudioPath points into the library directory.
type Profile struct {
	ID         string
	Name       string
	AudioPath  string
	Transcript string
	Duration   time.Duration
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// record is the on-disk form of a Profile.
type record struct {
	ID         string        `yaml:"id"`
	Name       string        `yaml:"name"`
	Audio      string        `yaml:"audio"`
	Transcript string        `yaml:"transcript,omitempty"`
	Duration   time.Duration `yaml:"duration"`
	CreatedAt  time.Time     `yaml:"created_at"`
	UpdatedAt  time.Time     `yaml:"updated_at"`
}

type manifest struct {
	Version int      `yaml:"version"`
	Voices  []record `yaml:"voices"`
}

// Prober validates reference audio and reports its duration.
type Prober func(path string) (audio.Probe, error)

// Options configures a Store.
type Options struct {
	// Dir holds the manifest and the audio copies. Required.
	Dir    string
	Logger *slog.Logger
	// Probe defaults to audio.ProbeFile.
	Probe Prober
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store is the voice library. All mutations rewrite the manifest atomically.
type Store struct {
	mu      sync.RWMutex
	dir     string
	records []record
	probe   Prober
	now     func() time.Time
	logger  *slog.Logger
}

// Open loads the library in opts.Dir, creating it if needed.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("voices: Options.Dir is required")
	}
	if opts.Probe == nil {
		opts.Probe = audio.ProbeFile
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(filepath.Join(opts.Dir, audioDir), 0o755); err != nil {
		return nil, fmt.Errorf("create voice library: %w", err)
	}

	s := &Store{
		dir:    opts.Dir,
		probe:  opts.Probe,
		now:    opts.Now,
		logger: opts.Logger,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the library directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) load() error {
	data, err := os.ReadFile(filepath.Join(s.dir, manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read voice manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse voice manifest: %w", err)
	}
	if m.Version > manifestVersion {
		return fmt.Errorf("voice manifest version %d is newer than supported version %d", m.Version, manifestVersion)
	}
	s.records = m.Voices
	return nil
}

// save writes the manifest to a temp file and renames it into place.
func (s *Store) save(records []record) error {
	data, err := yaml.Marshal(manifest{Version: manifestVersion, Voices: records})
	if err != nil {
		return fmt.Errorf("encode voice manifest: %w", err)
	}
	return writeAtomic(filepath.Join(s.dir, manifestName), data)
}

func (s *Store) profile(r record) Profile {
	return Profile{
		ID:         r.ID,
		Name:       r.Name,
		AudioPath:  filepath.Join(s.dir, r.Audio),
		Transcript: r.Transcript,
		Duration:   r.Duration,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.records, func(r record) bool { return r.ID == id })
}

// Enroll validates audioPath, copies it into the library and persists a new
// profile under a fresh id.
func (s *Store) Enroll(name, audioPath, transcript string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Profile{}, errs.Invalid("name", "must not be empty")
	}

	probe, err := s.probe(audioPath)
	if err != nil {
		return Profile{}, err
	}
	if probe.Duration <= 0 {
		return Profile{}, errs.Invalid("audio", "%s has zero length", filepath.Base(audioPath))
	}

	id := uuid.NewString()
	rel := filepath.Join(audioDir, id+strings.ToLower(filepath.Ext(audioPath)))
	if err := copyFile(audioPath, filepath.Join(s.dir, rel)); err != nil {
		return Profile{}, fmt.Errorf("copy reference audio: %w", err)
	}

	now := s.now()
	r := record{
		ID:         id,
		Name:       name,
		Audio:      rel,
		Transcript: strings.TrimSpace(transcript),
		Duration:   probe.Duration,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(slices.Clone(s.records), r)
	if err := s.save(next); err != nil {
		os.Remove(filepath.Join(s.dir, rel))
		return Profile{}, err
	}
	s.records = next

	s.logger.Info("voice enrolled", "voice_id", id, "name", name, "duration", probe.Duration)
	return s.profile(r), nil
}

// Update changes the fields that are set. The reference audio cannot change.
type Update struct {
	Name       *string
	Transcript *string
}

// Update applies u to the profile with id.
func (s *Store) Update(id string, u Update) (Profile, error) {
	var name string
	if u.Name != nil {
		name = strings.TrimSpace(*u.Name)
		if name == "" {
			return Profile{}, errs.Invalid("name", "must not be empty")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return Profile{}, errs.NotFound("voice", id)
	}

	next := slices.Clone(s.records)
	r := next[i]
	if u.Name != nil {
		r.Name = name
	}
	if u.Transcript != nil {
		r.Transcript = strings.TrimSpace(*u.Transcript)
	}
	r.UpdatedAt = s.now()
	next[i] = r

	if err := s.save(next); err != nil {
		return Profile{}, err
	}
	s.records = next

	s.logger.Info("voice updated", "voice_id", id, "name", r.Name)
	return s.profile(r), nil
}

// DeleteReport describes side effects of Delete.
type DeleteReport struct {
	Profile Profile
	// AudioMissing is set when the audio copy was already gone. The record
	// is removed regardless.
	AudioMissing bool
}

// Delete removes the profile and its audio copy.
func (s *Store) Delete(id string) (DeleteReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return DeleteReport{}, errs.NotFound("voice", id)
	}
	r := s.records[i]

	next := slices.Delete(slices.Clone(s.records), i, i+1)
	if err := s.save(next); err != nil {
		return DeleteReport{}, err
	}
	s.records = next

	report := DeleteReport{Profile: s.profile(r)}
	if err := os.Remove(report.Profile.AudioPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			report.AudioMissing = true
			s.logger.Warn("voice audio already missing", "voice_id", id, "path", report.Profile.AudioPath)
		} else {
			s.logger.Warn("failed to remove voice audio", "voice_id", id, "error", err)
		}
	}

	s.logger.Info("voice deleted", "voice_id", id, "name", r.Name)
	return report, nil
}

// Get returns the profile with id.
func (s *Store) Get(id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return Profile{}, errs.NotFound("voice", id)
	}
	return s.profile(s.records[i]), nil
}

// List yields profiles ordered by creation time. Each iteration takes a fresh
// snapshot, so re-listing reflects later edits.
func (s *Store) List() iter.Seq[Profile] {
	return func(yield func(Profile) bool) {
		s.mu.RLock()
		snapshot := slices.Clone(s.records)
		s.mu.RUnlock()

		slices.SortStableFunc(snapshot, func(a, b record) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})

		for _, r := range snapshot {
			if !yield(s.profile(r)) {
				return
			}
		}
	}
}

// Len returns the number of profiles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
