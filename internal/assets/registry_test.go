package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/dgnsrekt/voicedeck/internal/logging"
	"github.com/dgnsrekt/voicedeck/internal/modes"
)

// mockFetcher writes a complete bundle, after failing the first failures calls.
type mockFetcher struct {
	callCount int
	failures  int
	err       error
	noFiles   bool
	delay     time.Duration
}

func (m *mockFetcher) Fetch(_ context.Context, asset Asset, dest string, progress ProgressFunc) error {
	m.callCount++
	time.Sleep(m.delay)
	if m.callCount <= m.failures {
		return m.err
	}
	if m.noFiles {
		return nil
	}
	writeBundle(dest)
	if progress != nil {
		progress(Progress{AssetID: asset.ID, File: "model.safetensors", Done: 1, Total: 1})
	}
	return nil
}

func writeBundle(dir string) {
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o644)
	os.WriteFile(filepath.Join(dir, "model.safetensors"), []byte("weights"), 0o644)
}

func newRegistry(t *testing.T, f Fetcher, retries int) (*Registry, string) {
	t.Helper()
	root := t.TempDir()
	return New(Options{
		Root:       root,
		Fetcher:    f,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
		Logger:     logging.Discard(),
	}), root
}

func design() modes.Descriptor {
	d, _ := modes.Lookup(modes.VoiceDesign)
	return d
}

func TestStatus(t *testing.T) {
	r, root := newRegistry(t, nil, 0)
	mode := design()
	id := mode.Assets[0]

	states := r.Status(mode)
	if len(states) != 1 || states[0].AssetID != id || states[0].Present {
		t.Fatalf("Status() on empty root = %+v", states)
	}
	if r.Ready(mode) {
		t.Error("Ready() should be false without assets")
	}

	// Folder without the expected files is not present.
	os.MkdirAll(filepath.Join(root, id), 0o755)
	os.WriteFile(filepath.Join(root, id, "config.json"), []byte("{}"), 0o644)
	if r.Inspect(id).Present {
		t.Error("bundle without weights should not be present")
	}

	writeBundle(filepath.Join(root, id))
	st := r.Inspect(id)
	if !st.Present || st.Verified {
		t.Errorf("Inspect() = %+v, want present and unverified", st)
	}
	if st.Path != filepath.Join(root, id) {
		t.Errorf("Path = %s", st.Path)
	}
	if !r.Ready(mode) {
		t.Error("Ready() should be true")
	}

	os.WriteFile(filepath.Join(root, id, incompleteMarker), nil, 0o644)
	if r.Inspect(id).Present {
		t.Error("bundle with an incomplete marker should not be present")
	}
}

func TestStatus_SnapshotLayout(t *testing.T) {
	r, root := newRegistry(t, nil, 0)
	id := design().Assets[0]

	old := filepath.Join(root, id, "snapshots", "aaa")
	newer := filepath.Join(root, id, "snapshots", "bbb")
	writeBundle(old)
	writeBundle(newer)
	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)
	os.MkdirAll(filepath.Join(root, id, "snapshots", ".tmp"), 0o755)

	st := r.Inspect(id)
	if !st.Present {
		t.Fatal("snapshot bundle should be present")
	}
	if st.Path != newer {
		t.Errorf("Path = %s, want newest snapshot %s", st.Path, newer)
	}

	path, err := r.ModelPath(design())
	if err != nil || path != newer {
		t.Errorf("ModelPath() = %s, %v", path, err)
	}
}

func TestEnsure_RetriesThenSucceeds(t *testing.T) {
	f := &mockFetcher{failures: 1, err: errors.New("connection reset")}
	r, _ := newRegistry(t, f, 3)
	mode := design()

	var updates int
	if err := r.Ensure(context.Background(), mode, func(Progress) { updates++ }); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if f.callCount != 2 {
		t.Errorf("fetch called %d times, want 2", f.callCount)
	}
	if updates == 0 {
		t.Error("expected progress updates")
	}

	st := r.Status(mode)[0]
	if !st.Present || !st.Verified {
		t.Errorf("Status() after ensure = %+v, want present and verified", st)
	}
}

func TestEnsure_RetryCountBoundsSlowAttempts(t *testing.T) {
	f := &mockFetcher{failures: 4, err: errors.New("connection reset"), delay: 5 * time.Millisecond}
	r, _ := newRegistry(t, f, 4)

	if err := r.Ensure(context.Background(), design(), nil); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if f.callCount != 5 {
		t.Errorf("fetch called %d times, want 5", f.callCount)
	}
}

func TestEnsure_Idempotent(t *testing.T) {
	f := &mockFetcher{}
	r, _ := newRegistry(t, f, 0)
	mode := design()

	if err := r.Ensure(context.Background(), mode, nil); err != nil {
		t.Fatalf("first Ensure() error: %v", err)
	}
	if err := r.Ensure(context.Background(), mode, nil); err != nil {
		t.Fatalf("second Ensure() error: %v", err)
	}
	if f.callCount != 1 {
		t.Errorf("fetch called %d times, want 1", f.callCount)
	}
}

func TestEnsure_PresentSkipsFetcher(t *testing.T) {
	f := &mockFetcher{}
	r, root := newRegistry(t, f, 0)
	mode := design()
	writeBundle(filepath.Join(root, mode.Assets[0]))

	if err := r.Ensure(context.Background(), mode, nil); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if f.callCount != 0 {
		t.Errorf("fetch called %d times for a present asset", f.callCount)
	}
}

func TestEnsure_Failures(t *testing.T) {
	tests := []struct {
		name      string
		fetcher   *mockFetcher
		retries   int
		wantCalls int
	}{
		{"retries exhausted", &mockFetcher{failures: 10, err: errors.New("timeout")}, 2, 3},
		{"permanent", &mockFetcher{failures: 10, err: backoff.Permanent(errors.New("401"))}, 5, 1},
		{"incomplete bundle", &mockFetcher{noFiles: true}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRegistry(t, tt.fetcher, tt.retries)
			mode := design()

			err := r.Ensure(context.Background(), mode, nil)
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fe.AssetID != mode.Assets[0] {
				t.Errorf("AssetID = %s", fe.AssetID)
			}
			if tt.fetcher.callCount != tt.wantCalls {
				t.Errorf("fetch called %d times, want %d", tt.fetcher.callCount, tt.wantCalls)
			}
			if r.Ready(mode) {
				t.Error("mode should not be ready after a failed fetch")
			}
		})
	}
}

func TestEnsure_NoFetcher(t *testing.T) {
	r, _ := newRegistry(t, nil, 0)

	var fe *FetchError
	if err := r.Ensure(context.Background(), design(), nil); !errors.As(err, &fe) {
		t.Errorf("expected FetchError, got %v", err)
	}
}

func TestAsset(t *testing.T) {
	r, _ := newRegistry(t, nil, 0)
	a := r.Asset("Qwen3-TTS-12Hz-1.7B-Base-8bit")
	if a.Repo != "mlx-community/Qwen3-TTS-12Hz-1.7B-Base-8bit" {
		t.Errorf("Repo = %s", a.Repo)
	}
}
