// Package history keeps a log of completed generations.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dgnsrekt/voicedeck/internal/errs"
	"github.com/dgnsrekt/voicedeck/internal/kv"
	"github.com/dgnsrekt/voicedeck/internal/modes"
)

const prefix = "generation"

// Entry is one completed generation.
type Entry struct {
	ID         string        `msgpack:"id"`
	Mode       modes.ID      `msgpack:"mode"`
	OutputPath string        `msgpack:"output_path"`
	Format     string        `msgpack:"format"`
	Text       string        `msgpack:"text"`
	Speaker    string        `msgpack:"speaker,omitempty"`
	Instruct   string        `msgpack:"instruct,omitempty"`
	VoiceID    string        `msgpack:"voice_id,omitempty"`
	VoiceName  string        `msgpack:"voice_name,omitempty"`
	Duration   time.Duration `msgpack:"duration"`
	CreatedAt  time.Time     `msgpack:"created_at"`
}

// Store records entries under time-sortable ids.
type Store struct {
	kv kv.Store
}

// New wraps a kv store.
func New(store kv.Store) *Store {
	return &Store{kv: store}
}

// Open opens the badger-backed history at dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	db, err := kv.NewBadger(kv.BadgerOptions{Dir: dir, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return New(db), nil
}

// NewID returns a fresh generation id. Ids sort by creation time.
func NewID() string {
	return xid.New().String()
}

// Record stores e, assigning an id and timestamp when missing.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	data, err := msgpack.Marshal(&e)
	if err != nil {
		return Entry{}, fmt.Errorf("encode history entry: %w", err)
	}
	if err := s.kv.Set(ctx, kv.Key{prefix, e.ID}, data); err != nil {
		return Entry{}, fmt.Errorf("write history entry: %w", err)
	}
	return e, nil
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	data, err := s.kv.Get(ctx, kv.Key{prefix, id})
	if errors.Is(err, kv.ErrNotFound) {
		return Entry{}, errs.NotFound("generation", id)
	}
	if err != nil {
		return Entry{}, err
	}

	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode history entry %s: %w", id, err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	var out []Entry
	for item, err := range s.kv.List(ctx, kv.Key{prefix}, true) {
		if err != nil {
			return nil, err
		}
		var e Entry
		if err := msgpack.Unmarshal(item.Value, &e); err != nil {
			return nil, fmt.Errorf("decode history entry %s: %w", item.Key, err)
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Prune keeps the newest keep entries and deletes the rest.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	var stale []kv.Key
	n := 0
	for item, err := range s.kv.List(ctx, kv.Key{prefix}, true) {
		if err != nil {
			return 0, err
		}
		n++
		if n > keep {
			stale = append(stale, item.Key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := s.kv.BatchDelete(ctx, stale); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// Close releases the underlying store.
func (s *Store) Close() error {
	return s.kv.Close()
}
