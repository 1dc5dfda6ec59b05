// Package playback plays generated files through an external audio player.
// Plays are fire-and-forget: a new play interrupts the clip still running.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrNoPlayer is returned when no audio player binary can be found.
var ErrNoPlayer = errors.New("no audio player found")

// Player starts playback of an audio file and returns without waiting.
type Player interface {
	Play(path string) error
}

// candidates are tried in order when no player command is configured.
var candidates = [][]string{
	{"afplay"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"paplay"},
	{"aplay", "-q"},
}

// Command is an external player invocation; the file path is appended last.
type Command struct {
	Binary string
	Args   []string
}

// DetectCommand resolves the player to use. A non-empty command is split on
// whitespace and must exist on PATH; otherwise the first available candidate
// wins.
func DetectCommand(command string) (Command, error) {
	if fields := strings.Fields(command); len(fields) > 0 {
		bin, err := exec.LookPath(fields[0])
		if err != nil {
			return Command{}, fmt.Errorf("%w: %s", ErrNoPlayer, fields[0])
		}
		return Command{Binary: bin, Args: fields[1:]}, nil
	}

	for _, c := range candidates {
		if bin, err := exec.LookPath(c[0]); err == nil {
			return Command{Binary: bin, Args: c[1:]}, nil
		}
	}
	return Command{}, ErrNoPlayer
}

// Run plays path to completion or until ctx is cancelled.
func (c Command) Run(ctx context.Context, path string) error {
	args := append(append([]string{}, c.Args...), path)
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", c.Binary, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// startupGrace is how long Play waits for a player that fails right away.
const startupGrace = 300 * time.Millisecond

// QueuePlayer feeds plays through a single-worker Queue.
type QueuePlayer struct {
	queue  *Queue
	grace  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	waiting map[string]chan error
}

// NewQueuePlayer starts a worker that plays each job with handler.
func NewQueuePlayer(handler Handler, logger *slog.Logger) *QueuePlayer {
	p := &QueuePlayer{
		queue:   NewQueue(4, logger),
		grace:   startupGrace,
		logger:  logger,
		waiting: make(map[string]chan error),
	}
	p.queue.SetHandler(handler)
	p.queue.SetJobCompletedCallback(p.completed)
	p.queue.Start()
	return p
}

// NewCommandPlayer is NewQueuePlayer driven by an external command.
func NewCommandPlayer(cmd Command, logger *slog.Logger) *QueuePlayer {
	logger.Debug("audio player selected", "binary", cmd.Binary)
	return NewQueuePlayer(func(ctx context.Context, job *PlayJob) error {
		return cmd.Run(ctx, job.Path)
	}, logger)
}

// Play interrupts the current clip and queues path. It returns the player's
// error when the clip fails within the startup grace period; later failures
// are only logged.
func (p *QueuePlayer) Play(path string) error {
	p.queue.Interrupt()

	job := NewPlayJob(path)
	done := make(chan error, 1)
	p.mu.Lock()
	p.waiting[job.ID] = done
	p.mu.Unlock()
	defer p.forget(job.ID)

	if err := p.queue.Enqueue(job); err != nil {
		return err
	}

	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-timer.C:
		return nil
	}
}

func (p *QueuePlayer) completed(job *PlayJob) {
	p.mu.Lock()
	done, ok := p.waiting[job.ID]
	p.mu.Unlock()
	if ok {
		done <- job.Err
	}
}

func (p *QueuePlayer) forget(id string) {
	p.mu.Lock()
	delete(p.waiting, id)
	p.mu.Unlock()
}

// Close stops the worker and any clip still playing.
func (p *QueuePlayer) Close() error {
	p.queue.Stop()
	return nil
}

// Unavailable is the Player used when detection failed; every Play reports
// the detection error so callers can surface it as a warning.
type Unavailable struct {
	Err error
}

// Play always fails with the detection error.
func (u Unavailable) Play(string) error {
	return u.Err
}
