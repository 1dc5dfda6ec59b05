package playback

import "testing"

func TestNewPlayJob(t *testing.T) {
	job := NewPlayJob("/tmp/a.wav")

	if job.ID == "" {
		t.Error("expected non-empty job ID")
	}
	if job.Path != "/tmp/a.wav" {
		t.Errorf("expected path '/tmp/a.wav', got '%s'", job.Path)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected non-zero created_at")
	}

	if other := NewPlayJob("/tmp/a.wav"); other.ID == job.ID {
		t.Error("expected unique job IDs")
	}
}
