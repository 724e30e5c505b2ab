package watchdog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	logx "clipwatch/pkg/logx"
)

// StartFunc is a task body hosted by the ProcessRegistry. It should block
// until its context is canceled or it fails.
type StartFunc func(ctx context.Context) error

// Spawner launches a named goroutine. Wiring passes the app supervisor's Go
// method here so restarted tasks get panic recovery and shutdown handling
// like everything else.
type Spawner func(name string, fn func(ctx context.Context) error)

// ProcessRegistry is the in-process Registry used when the supervised task
// lives inside this binary. Liveness is derived from goroutine completion:
// the running flag flips only when the task function actually returns, never
// from anything the task itself reports.
type ProcessRegistry struct {
	log logx.Logger

	mu    sync.Mutex
	spawn Spawner
	tasks map[string]*procTask
}

type procTask struct {
	start   StartFunc
	running atomic.Bool
}

func NewProcessRegistry(log logx.Logger) *ProcessRegistry {
	return &ProcessRegistry{log: log, tasks: map[string]*procTask{}}
}

// SetSpawner installs the goroutine launcher. Must be called before Start.
func (r *ProcessRegistry) SetSpawner(spawn Spawner) {
	r.mu.Lock()
	r.spawn = spawn
	r.mu.Unlock()
}

// Define registers a task body under a stable name. Redefining a name
// replaces the body used by subsequent starts.
func (r *ProcessRegistry) Define(task string, start StartFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tasks[task]
	if t == nil {
		t = &procTask{}
		r.tasks[task] = t
	}
	t.start = start
}

func (r *ProcessRegistry) IsRunning(_ context.Context, task string) (bool, error) {
	r.mu.Lock()
	t := r.tasks[task]
	r.mu.Unlock()
	if t == nil {
		return false, fmt.Errorf("unknown task %q", task)
	}
	return t.running.Load(), nil
}

// Start launches the task if it is not already running. Starting a running
// task is a no-op, so watchdog checks racing a healthy task are harmless.
func (r *ProcessRegistry) Start(_ context.Context, task string) error {
	r.mu.Lock()
	t := r.tasks[task]
	spawn := r.spawn
	r.mu.Unlock()

	if t == nil {
		return fmt.Errorf("unknown task %q", task)
	}
	if t.start == nil {
		return fmt.Errorf("task %q has no start function", task)
	}
	if spawn == nil {
		return fmt.Errorf("registry has no spawner bound")
	}
	if !t.running.CompareAndSwap(false, true) {
		return nil
	}

	start := t.start
	spawn(task, func(ctx context.Context) error {
		defer t.running.Store(false)
		return start(ctx)
	})
	if !r.log.IsZero() {
		r.log.Debug("task started", logx.String("task", task))
	}
	return nil
}
