package playback

import (
	"time"

	"github.com/google/uuid"
)

// PlayJob is one file waiting to be played.
type PlayJob struct {
	ID        string
	Path      string
	CreatedAt time.Time
	// Err is the handler's result. It is set before the completion callback
	// runs.
	Err error
}

// NewPlayJob creates a job for path.
func NewPlayJob(path string) *PlayJob {
	return &PlayJob{
		ID:        uuid.New().String(),
		Path:      path,
		CreatedAt: time.Now(),
	}
}
