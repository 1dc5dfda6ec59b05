package playback

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestQueuePlayerInterruptsPreviousClip(t *testing.T) {
	var mu sync.Mutex
	var cancelled []string
	var finished []string
	firstStarted := make(chan struct{})
	secondDone := make(chan struct{})

	p := NewQueuePlayer(func(ctx context.Context, job *PlayJob) error {
		if job.Path == "first.wav" {
			close(firstStarted)
			<-ctx.Done()
			mu.Lock()
			cancelled = append(cancelled, job.Path)
			mu.Unlock()
			return ctx.Err()
		}
		mu.Lock()
		finished = append(finished, job.Path)
		mu.Unlock()
		close(secondDone)
		return nil
	}, testLogger())
	defer p.Close()

	if err := p.Play("first.wav"); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	select {
	case <-firstStarted:
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for first clip")
	}

	if err := p.Play("second.wav"); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	select {
	case <-secondDone:
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for second clip")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(cancelled) != 1 || cancelled[0] != "first.wav" {
		t.Errorf("expected first clip to be cancelled, got %v", cancelled)
	}
	if len(finished) != 1 || finished[0] != "second.wav" {
		t.Errorf("expected second clip to finish, got %v", finished)
	}
}

func TestPlay_ReportsEarlyFailure(t *testing.T) {
	wantErr := errors.New("aplay: exit status 1: unsupported format")

	tests := []struct {
		name    string
		handler Handler
		wantErr error
	}{
		{"player fails at once", func(ctx context.Context, job *PlayJob) error { return wantErr }, wantErr},
		{"short clip finishes", func(ctx context.Context, job *PlayJob) error { return nil }, nil},
		{"clip still playing", func(ctx context.Context, job *PlayJob) error {
			<-ctx.Done()
			return ctx.Err()
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewQueuePlayer(tt.handler, testLogger())
			p.grace = 20 * time.Millisecond
			defer p.Close()

			err := p.Play("a.wav")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Play() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlayAfterClose(t *testing.T) {
	p := NewQueuePlayer(func(ctx context.Context, job *PlayJob) error { return nil }, testLogger())
	p.Close()

	if err := p.Play("a.wav"); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestDetectCommand_Configured(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	cmd, err := DetectCommand("true --volume 1")
	if err != nil {
		t.Fatalf("DetectCommand() error: %v", err)
	}
	if filepath.Base(cmd.Binary) != "true" {
		t.Errorf("Binary = %s, want true", cmd.Binary)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "--volume" {
		t.Errorf("Args = %v", cmd.Args)
	}

	if err := cmd.Run(context.Background(), "clip.wav"); err != nil {
		t.Errorf("Run() error: %v", err)
	}
}

func TestDetectCommand_Missing(t *testing.T) {
	_, err := DetectCommand("definitely-not-a-player-binary")
	if !errors.Is(err, ErrNoPlayer) {
		t.Errorf("expected ErrNoPlayer, got %v", err)
	}
}

func TestCommandRun_Failure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	script := filepath.Join(t.TempDir(), "player.sh")
	os.WriteFile(script, []byte("#!/bin/sh\necho cannot open \"$1\" >&2\nexit 3\n"), 0o755)

	err := Command{Binary: script}.Run(context.Background(), "x.wav")
	if err == nil {
		t.Fatal("expected error from failing player")
	}
}

func TestUnavailable(t *testing.T) {
	var p Player = Unavailable{Err: ErrNoPlayer}
	if err := p.Play("a.wav"); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("expected ErrNoPlayer, got %v", err)
	}
}
