package tasks

import (
	"context"
	"time"
)

// TaskInterface is one periodic unit of work. Execute runs a single cycle;
// its error is logged by the scheduler and never stops the schedule.
type TaskInterface interface {
	Name() string
	Execute(ctx context.Context) error
}

// TaskSchedulerInterface is used by the main application to drive the
// background cycles.
//
//	scheduler := NewScheduler()
//	scheduler.Register(poller, 15*time.Minute)
//	scheduler.Start(ctx)
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Register(task TaskInterface, interval time.Duration) error
	Start(ctx context.Context)
	Stop()
}
