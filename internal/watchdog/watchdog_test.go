package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clipwatch/internal/eventbus"
)

type fakeRegistry struct {
	mu         sync.Mutex
	running    bool
	isErr      error
	startErr   error
	isCalls    int
	startCalls int
}

func (f *fakeRegistry) IsRunning(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.isCalls++
	return f.running, f.isErr
}

func (f *fakeRegistry) Start(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr == nil {
		f.running = true
	}
	return f.startErr
}

func (f *fakeRegistry) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isCalls, f.startCalls
}

func TestCheckOnceRestartsDeadTask(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{running: false}
	w := New(Config{Task: "engine"}, reg)

	w.checkOnce(context.Background())

	isCalls, startCalls := reg.counts()
	if isCalls != 1 || startCalls != 1 {
		t.Fatalf("calls = %d checks, %d starts; want exactly one of each", isCalls, startCalls)
	}
	rec := w.Snapshot()
	if rec.Restarts != 1 || !rec.TargetAlive || rec.Checks != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.LastRestartAt.IsZero() {
		t.Fatal("LastRestartAt not set")
	}
}

func TestCheckOnceHealthyIsNoop(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{running: true}
	w := New(Config{Task: "engine"}, reg)

	w.checkOnce(context.Background())
	w.checkOnce(context.Background())

	_, startCalls := reg.counts()
	if startCalls != 0 {
		t.Fatalf("start called %d times for a healthy task, want 0", startCalls)
	}
	rec := w.Snapshot()
	if rec.Checks != 2 || !rec.TargetAlive || rec.Restarts != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestCheckOnceRegistryErrorIsRetriedNextPeriod(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{isErr: errors.New("registry unavailable")}
	w := New(Config{Task: "engine"}, reg)

	w.checkOnce(context.Background())

	_, startCalls := reg.counts()
	if startCalls != 0 {
		t.Fatalf("start issued despite a failed liveness check")
	}
	rec := w.Snapshot()
	if rec.LastErr == "" || rec.Restarts != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestCheckOnceStartFailureIsLoggedNotEscalated(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{running: false, startErr: errors.New("spawn failed")}
	w := New(Config{Task: "engine"}, reg)

	w.checkOnce(context.Background())
	w.checkOnce(context.Background())

	_, startCalls := reg.counts()
	if startCalls != 2 {
		t.Fatalf("start attempts = %d, want one per period", startCalls)
	}
	rec := w.Snapshot()
	if rec.Restarts != 0 || rec.LastErr == "" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestCheckOnceOverlapGuard(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{running: false}
	w := New(Config{Task: "engine"}, reg)

	// Simulate a check still in flight when the next period fires.
	w.checking.Store(1)
	w.checkOnce(context.Background())
	isCalls, startCalls := reg.counts()
	if isCalls != 0 || startCalls != 0 {
		t.Fatalf("overlapping check touched the registry: %d/%d", isCalls, startCalls)
	}
}

func TestCheckOncePublishesRestart(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{running: false}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()
	w := New(Config{Task: "engine"}, reg, WithBus(bus))

	w.checkOnce(context.Background())

	select {
	case ev := <-events:
		if ev.Type != eventbus.TypeWatchdogRestarted {
			t.Fatalf("event type = %s, want %s", ev.Type, eventbus.TypeWatchdogRestarted)
		}
		info, ok := ev.Data.(RestartInfo)
		if !ok || info.Task != "engine" {
			t.Fatalf("unexpected payload: %#v", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no restart event published")
	}
}

func TestRunChecksOnStartAndStopsOnCancel(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{running: true}
	w := New(Config{Task: "engine", Period: time.Hour}, reg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if isCalls, _ := reg.counts(); isCalls >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no immediate check within 2s")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
