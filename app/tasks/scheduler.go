package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

var ErrSchedulerStarted = errors.New("scheduler already started")

type entry struct {
	task     TaskInterface
	interval time.Duration
}

// Scheduler runs every registered task once at Start and then after each
// interval. Each task has its own goroutine, so a slow cycle only delays
// its own next tick.
type Scheduler struct {
	mu      sync.Mutex
	entries []entry
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	onRun   func(*Run)
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Register(task TaskInterface, interval time.Duration) error {
	if task == nil {
		return fmt.Errorf("task is nil")
	}
	if interval <= 0 {
		return fmt.Errorf("invalid interval %v for task %s", interval, task.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrSchedulerStarted
	}
	s.entries = append(s.entries, entry{task: task, interval: interval})
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}

	slog.Debug("Scheduler started", "tasks", len(s.entries))
}

// Stop cancels the running loops and waits for in-flight cycles to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()

	s.execute(ctx, e.task)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, e.task)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, task TaskInterface) {
	run := NewRun(task.Name())
	run.Err = s.safeExecute(ctx, task, run)

	if run.Err != nil && !run.Panicked {
		slog.Error("Task execution failed", "task", run.TaskName, "run_id", run.ID, "duration", run.GetDuration(), "error", run.Err)
	} else if run.Err == nil {
		slog.Debug("Task completed", "task", run.TaskName, "run_id", run.ID, "duration", run.GetDuration())
	}

	if s.onRun != nil {
		s.onRun(run)
	}
}

// safeExecute converts a panic in the task into an error carrying a
// correlation id; the stack is logged under the same id.
func (s *Scheduler) safeExecute(ctx context.Context, task TaskInterface, run *Run) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			slog.Error("Task panic",
				"task", run.TaskName,
				"run_id", run.ID,
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack))

			run.Panicked = true
			err = fmt.Errorf("task panic (correlation_id: %s)", correlationID)
		}
	}()
	return task.Execute(ctx)
}
