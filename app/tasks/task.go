package tasks

import (
	"time"

	"github.com/google/uuid"
)

// Run records a single invocation of a task
type Run struct {
	ID        string
	TaskName  string
	StartedAt time.Time
	Err       error
	Panicked  bool
}

func NewRun(taskName string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		TaskName:  taskName,
		StartedAt: time.Now(),
	}
}

func (r *Run) GetDuration() time.Duration {
	return time.Since(r.StartedAt)
}
