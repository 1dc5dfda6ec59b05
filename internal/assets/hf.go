package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v5"
)

// ErrChecksumMismatch is returned when a downloaded file does not match the
// hash published by the hub.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// StatusError is a non-success HTTP response from the hub.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

// retryable reports whether the request may succeed if repeated.
func (e *StatusError) retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}

// HFFetcher downloads model repositories from a Hugging Face compatible hub.
type HFFetcher struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

// NewHFFetcher creates a fetcher for endpoint. token may be empty.
func NewHFFetcher(endpoint, token string, logger *slog.Logger) *HFFetcher {
	return &HFFetcher{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		client:   &http.Client{},
		logger:   logger,
	}
}

type treeEntry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	LFS  *struct {
		Oid  string `json:"oid"`
		Size int64  `json:"size"`
	} `json:"lfs,omitempty"`
}

// Fetch mirrors every file of the repository into dest. Complete files are
// skipped and partial ones resume from a .part file.
func (f *HFFetcher) Fetch(ctx context.Context, asset Asset, dest string, progress ProgressFunc) error {
	entries, err := f.list(ctx, asset.Repo)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.Type != "file" {
			continue
		}
		if err := f.download(ctx, asset, e, dest, progress); err != nil {
			return fmt.Errorf("%s: %w", e.Path, err)
		}
	}
	return nil
}

func (f *HFFetcher) list(ctx context.Context, repo string) ([]treeEntry, error) {
	u := fmt.Sprintf("%s/api/models/%s/tree/main?recursive=true", f.endpoint, repo)
	resp, err := f.get(ctx, u, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entries []treeEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}
	return entries, nil
}

func (f *HFFetcher) download(ctx context.Context, asset Asset, e treeEntry, dest string, progress ProgressFunc) error {
	target, err := safeJoin(dest, e.Path)
	if err != nil {
		return backoff.Permanent(err)
	}

	size := e.Size
	if e.LFS != nil {
		size = e.LFS.Size
	}
	if fi, err := os.Stat(target); err == nil && fi.Size() == size {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	part := target + ".part"
	var offset int64
	if fi, err := os.Stat(part); err == nil {
		offset = fi.Size()
	}

	// A .part that already holds every byte is finished without a request.
	if offset > size {
		offset = 0
	} else if offset == size && size > 0 {
		err := f.finish(e, part, target)
		if !errors.Is(err, ErrChecksumMismatch) {
			return err
		}
		offset = 0
	}

	u := fmt.Sprintf("%s/%s/resolve/main/%s", f.endpoint, asset.Repo, escapePath(e.Path))
	resp, err := f.get(ctx, u, offset)
	var serr *StatusError
	if errors.As(err, &serr) && serr.Code == http.StatusRequestedRangeNotSatisfiable && offset > 0 {
		f.logger.Debug("stale partial download, restarting", "asset_id", asset.ID, "file", e.Path, "offset", offset)
		offset = 0
		resp, err = f.get(ctx, u, 0)
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if resp.StatusCode != http.StatusPartialContent {
		offset = 0
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	out, err := os.OpenFile(part, flags, 0o644)
	if err != nil {
		return err
	}

	pw := &progressWriter{done: offset, total: size, report: func(done, total int64) {
		if progress != nil {
			progress(Progress{AssetID: asset.ID, File: e.Path, Done: done, Total: total})
		}
	}}
	_, copyErr := io.Copy(out, io.TeeReader(resp.Body, pw))
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return err
	}

	f.logger.Debug("file fetched", "asset_id", asset.ID, "file", e.Path, "bytes", pw.done)
	return f.finish(e, part, target)
}

// finish verifies a complete .part against its LFS hash and moves it into
// place. A mismatching .part is removed.
func (f *HFFetcher) finish(e treeEntry, part, target string) error {
	if e.LFS != nil {
		if err := verifySHA256(part, e.LFS.Oid); err != nil {
			os.Remove(part)
			return err
		}
	}
	return os.Rename(part, target)
}

// get issues a GET, resuming from offset when it is positive. Client errors
// other than timeouts and rate limits are permanent.
func (f *HFFetcher) get(ctx context.Context, u string, offset int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent {
		return resp, nil
	}
	resp.Body.Close()

	serr := &StatusError{URL: u, Code: resp.StatusCode}
	if !serr.retryable() {
		return nil, backoff.Permanent(serr)
	}
	return nil, serr
}

type progressWriter struct {
	done   int64
	total  int64
	report func(done, total int64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.done += int64(len(p))
	w.report(w.done, w.total)
	return len(p), nil
}

func verifySHA256(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, want) {
		return fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, got, want)
	}
	return nil
}

func safeJoin(root, rel string) (string, error) {
	p := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(p, filepath.Clean(root)+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes asset directory", rel)
	}
	return p, nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
