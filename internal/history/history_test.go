package history

import (
	"context"
	"testing"
	"time"

	"github.com/dgnsrekt/voicedeck/internal/errs"
	"github.com/dgnsrekt/voicedeck/internal/kv"
	"github.com/dgnsrekt/voicedeck/internal/modes"
)

func TestRecordAndGet(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory())

	e, err := s.Record(ctx, Entry{
		Mode:       modes.CustomVoice,
		OutputPath: "outputs/CustomVoice/10-00-00_hello.wav",
		Format:     "wav",
		Text:       "hello",
		Speaker:    "Ryan",
		Duration:   1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("Record() did not assign id/timestamp: %+v", e)
	}

	got, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Speaker != "Ryan" || got.Duration != 1500*time.Millisecond || got.Mode != modes.CustomVoice {
		t.Errorf("Get() = %+v", got)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := New(kv.NewMemory())
	if _, err := s.Get(context.Background(), "missing"); !errs.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory())

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		e, err := s.Record(ctx, Entry{Mode: modes.VoiceDesign, Text: text})
		if err != nil {
			t.Fatalf("Record() error: %v", err)
		}
		ids = append(ids, e.ID)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Errorf("List() order wrong: %v", all)
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(limited) != 2 || limited[0].Text != "three" {
		t.Errorf("List(2) = %v", limited)
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory())

	for i := 0; i < 5; i++ {
		if _, err := s.Record(ctx, Entry{Mode: modes.VoiceCloning, Text: "x"}); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	removed, err := s.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if removed != 3 {
		t.Errorf("Prune() removed %d, want 3", removed)
	}

	left, _ := s.List(ctx, 0)
	if len(left) != 2 {
		t.Errorf("expected 2 entries left, got %d", len(left))
	}
}

func TestOpen_Badger(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	e, err := s.Record(ctx, Entry{Mode: modes.CustomVoice, Text: "persisted"})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, e.ID)
	if err != nil || got.Text != "persisted" {
		t.Errorf("Get() after reopen = %+v, %v", got, err)
	}
}
