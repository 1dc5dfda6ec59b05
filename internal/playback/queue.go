package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("playback queue is full")
	// ErrQueueClosed is returned when enqueueing to a stopped queue.
	ErrQueueClosed = errors.New("playback queue is closed")
)

// Handler plays a single job. It must return when ctx is cancelled.
type Handler func(ctx context.Context, job *PlayJob) error

// Queue is a bounded queue drained by a single worker, so clips never overlap.
type Queue struct {
	mu            sync.Mutex
	jobs          []*PlayJob
	capacity      int
	logger        *slog.Logger
	closed        bool
	handler       Handler
	onCompleted   func(job *PlayJob)
	cancelCurrent context.CancelFunc
	wg            sync.WaitGroup
	stopCh        chan struct{}
	enqueueCh     chan struct{}
}

// NewQueue creates a queue holding at most capacity pending jobs.
func NewQueue(capacity int, logger *slog.Logger) *Queue {
	return &Queue{
		jobs:      make([]*PlayJob, 0, capacity),
		capacity:  capacity,
		logger:    logger,
		stopCh:    make(chan struct{}),
		enqueueCh: make(chan struct{}, 1),
	}
}

// SetHandler sets the function called to play each job.
func (q *Queue) SetHandler(fn Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = fn
}

// SetJobCompletedCallback sets a function called after every job that
// reached the worker, including failed and cancelled ones. Jobs dropped by
// Interrupt never complete.
func (q *Queue) SetJobCompletedCallback(fn func(job *PlayJob)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onCompleted = fn
}

// Enqueue adds a job to the queue.
func (q *Queue) Enqueue(job *PlayJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if len(q.jobs) >= q.capacity {
		return ErrQueueFull
	}

	q.jobs = append(q.jobs, job)
	q.logger.Debug("playback enqueued", "job_id", job.ID, "path", job.Path, "queue_depth", len(q.jobs))

	select {
	case q.enqueueCh <- struct{}{}:
	default:
	}
	return nil
}

// Interrupt cancels the clip playing now and drops everything pending.
func (q *Queue) Interrupt() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelCurrent != nil {
		q.cancelCurrent()
		q.cancelCurrent = nil
	}

	cleared := len(q.jobs)
	q.jobs = q.jobs[:0]
	if cleared > 0 {
		q.logger.Debug("playback interrupted", "jobs_cleared", cleared)
	}
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Start begins the worker goroutine.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.worker()
}

// Stop cancels the current clip and waits for the worker to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.cancelCurrent != nil {
		q.cancelCurrent()
	}
	q.mu.Unlock()

	close(q.stopCh)
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		if job, ctx, cancel := q.dequeue(); job != nil {
			q.processJob(ctx, cancel, job)
			continue
		}

		select {
		case <-q.stopCh:
			return
		case <-q.enqueueCh:
		}
	}
}

// dequeue pops the next job and makes it current, so an Interrupt from here
// on cancels it.
func (q *Queue) dequeue() (*PlayJob, context.Context, context.CancelFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 || q.closed {
		return nil, nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]

	ctx, cancel := context.WithCancel(context.Background())
	q.cancelCurrent = cancel
	return job, ctx, cancel
}

func (q *Queue) processJob(ctx context.Context, cancel context.CancelFunc, job *PlayJob) {
	q.mu.Lock()
	handler := q.handler
	q.mu.Unlock()

	defer func() {
		cancel()
		q.mu.Lock()
		q.cancelCurrent = nil
		callback := q.onCompleted
		q.mu.Unlock()
		if callback != nil {
			callback(job)
		}
	}()

	if handler == nil {
		q.logger.Warn("no playback handler set, skipping job", "job_id", job.ID)
		return
	}

	job.Err = handler(ctx, job)
	if err := job.Err; err != nil {
		if errors.Is(err, context.Canceled) {
			q.logger.Debug("playback cancelled", "job_id", job.ID)
		} else {
			q.logger.Warn("playback failed", "job_id", job.ID, "path", job.Path, "error", err)
		}
		return
	}
	q.logger.Debug("playback finished", "job_id", job.ID)
}
