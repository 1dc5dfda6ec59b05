// Package assets tracks the model bundles each mode needs and fetches the
// missing ones into the local models directory.
package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/dgnsrekt/voicedeck/internal/modes"
)

const (
	// incompleteMarker is present while a fetch into the folder is unfinished.
	incompleteMarker = ".incomplete"
	// verifiedMarker is written after a fetch whose checksums all matched.
	verifiedMarker = ".verified"
	snapshotsDir   = "snapshots"
)

// requiredFiles are the globs every bundle must match to count as present.
var requiredFiles = []string{"config.json", "*.safetensors"}

// ErrNoAssets is returned for a mode that declares no assets.
var ErrNoAssets = errors.New("mode has no assets")

// Asset names a model bundle and where it is hosted.
type Asset struct {
	ID   string
	Repo string
}

// State is the inspected condition of one asset. It is never persisted.
type State struct {
	AssetID  string
	Present  bool
	Verified bool
	Path     string // resolved bundle directory, empty when absent
}

// Progress reports download progress for a single file of an asset.
type Progress struct {
	AssetID string
	File    string
	Done    int64
	Total   int64
}

// ProgressFunc receives Progress updates. It may be nil.
type ProgressFunc func(Progress)

// Fetcher downloads an asset into dest. Implementations must be resumable:
// files already complete in dest are not downloaded again.
type Fetcher interface {
	Fetch(ctx context.Context, asset Asset, dest string, progress ProgressFunc) error
}

// FetchError reports an asset that could not be fetched.
type FetchError struct {
	AssetID string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.AssetID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures a Registry.
type Options struct {
	Root       string
	Org        string
	Fetcher    Fetcher
	MaxRetries int
	Backoff    time.Duration
	Logger     *slog.Logger
}

// Registry answers whether a mode's assets are on disk and fetches them.
type Registry struct {
	root       string
	org        string
	fetcher    Fetcher
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// New creates a registry rooted at opts.Root.
func New(opts Options) *Registry {
	if opts.Org == "" {
		opts.Org = modes.AssetOrg
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Registry{
		root:       opts.Root,
		org:        opts.Org,
		fetcher:    opts.Fetcher,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		logger:     opts.Logger,
	}
}

// Asset returns the hosting information for id.
func (r *Registry) Asset(id string) Asset {
	return Asset{ID: id, Repo: r.org + "/" + id}
}

// Inspect checks a single asset on disk.
func (r *Registry) Inspect(id string) State {
	st := State{AssetID: id}
	base := filepath.Join(r.root, id)

	if _, err := os.Stat(filepath.Join(base, incompleteMarker)); err == nil {
		return st
	}

	dir := resolveSnapshot(base)
	if dir == "" || !structurallyComplete(dir) {
		return st
	}

	st.Present = true
	st.Path = dir
	if _, err := os.Stat(filepath.Join(base, verifiedMarker)); err == nil {
		st.Verified = true
	}
	return st
}

// Status inspects every asset mode requires.
func (r *Registry) Status(mode modes.Descriptor) []State {
	states := make([]State, 0, len(mode.Assets))
	for _, id := range mode.Assets {
		states = append(states, r.Inspect(id))
	}
	return states
}

// Ready reports whether every asset of mode is present.
func (r *Registry) Ready(mode modes.Descriptor) bool {
	for _, st := range r.Status(mode) {
		if !st.Present {
			return false
		}
	}
	return len(mode.Assets) > 0
}

// ModelPath returns the resolved directory of the mode's primary asset.
func (r *Registry) ModelPath(mode modes.Descriptor) (string, error) {
	if len(mode.Assets) == 0 {
		return "", ErrNoAssets
	}
	st := r.Inspect(mode.Assets[0])
	if !st.Present {
		return "", &FetchError{AssetID: st.AssetID, Err: errors.New("not present")}
	}
	return st.Path, nil
}

// Ensure makes every asset of mode present. Assets already present are left
// alone and cause no network access. A failed asset yields a *FetchError.
func (r *Registry) Ensure(ctx context.Context, mode modes.Descriptor, progress ProgressFunc) error {
	if len(mode.Assets) == 0 {
		return ErrNoAssets
	}

	for _, id := range mode.Assets {
		if r.Inspect(id).Present {
			continue
		}
		if r.fetcher == nil {
			return &FetchError{AssetID: id, Err: errors.New("no fetcher configured")}
		}
		if err := r.fetch(ctx, id, progress); err != nil {
			return &FetchError{AssetID: id, Err: err}
		}
	}
	return nil
}

func (r *Registry) fetch(ctx context.Context, id string, progress ProgressFunc) error {
	asset := r.Asset(id)
	dest := filepath.Join(r.root, id)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	marker := filepath.Join(dest, incompleteMarker)
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.backoff

	r.logger.Info("fetching asset", "asset_id", id, "repo", asset.Repo, "dest", dest)

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.fetcher.Fetch(ctx, asset, dest, progress)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.maxRetries)+1),
		// Only the retry count bounds a fetch; bundles run for many minutes.
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("asset fetch failed, retrying", "asset_id", id, "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		return err
	}

	if !structurallyComplete(resolveSnapshot(dest)) {
		return fmt.Errorf("bundle incomplete after fetch, expected %v", requiredFiles)
	}
	if err := os.Remove(marker); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dest, verifiedMarker), nil, 0o644); err != nil {
		r.logger.Warn("failed to write verified marker", "asset_id", id, "error", err)
	}

	r.logger.Info("asset ready", "asset_id", id)
	return nil
}

// resolveSnapshot returns base, or its newest snapshots/<hash> directory when
// base is laid out as a Hugging Face cache. Empty means base does not exist.
func resolveSnapshot(base string) string {
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return ""
	}

	entries, err := os.ReadDir(filepath.Join(base, snapshotsDir))
	if err != nil {
		return base
	}

	type snap struct {
		path string
		mod  time.Time
	}
	var snaps []snap
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, snap{filepath.Join(base, snapshotsDir, e.Name()), fi.ModTime()})
	}
	if len(snaps) == 0 {
		return base
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].mod.After(snaps[j].mod) })
	return snaps[0].path
}

func structurallyComplete(dir string) bool {
	if dir == "" {
		return false
	}
	for _, pattern := range requiredFiles {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil || len(matches) == 0 {
			return false
		}
	}
	return true
}
