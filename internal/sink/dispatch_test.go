package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clipwatch/internal/history"
	"clipwatch/internal/monitor"
	logx "clipwatch/pkg/logx"
)

type recordingSink struct {
	mu      sync.Mutex
	changes []monitor.ChangeEvent
	clears  []monitor.ChangeEvent
	err     error
	got     chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{got: make(chan struct{}, 64)}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) OnChange(_ context.Context, ev monitor.ChangeEvent) error {
	s.mu.Lock()
	s.changes = append(s.changes, ev)
	s.mu.Unlock()
	s.got <- struct{}{}
	return s.err
}

func (s *recordingSink) OnCleared(_ context.Context, ev monitor.ChangeEvent) error {
	s.mu.Lock()
	s.clears = append(s.clears, ev)
	s.mu.Unlock()
	s.got <- struct{}{}
	return s.err
}

func changed(content string) monitor.ChangeEvent {
	return monitor.ChangeEvent{
		Snapshot:   monitor.Snapshot{Content: content, Present: true},
		DetectedAt: time.Now(),
	}
}

func cleared(prev string) monitor.ChangeEvent {
	return monitor.ChangeEvent{
		Previous:   monitor.Snapshot{Content: prev, Present: true},
		DetectedAt: time.Now(),
	}
}

func waitDelivered(t *testing.T, s *recordingSink, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("delivery %d/%d did not arrive", i+1, n)
		}
	}
}

func TestDispatcherRoutesChangesAndClears(t *testing.T) {
	t.Parallel()
	rec := newRecordingSink()
	d := NewDispatcher(8, logx.Logger{}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	d.Emit(changed("one"))
	d.Emit(cleared("one"))
	waitDelivered(t, rec, 2)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.changes) != 1 || rec.changes[0].Snapshot.Content != "one" {
		t.Fatalf("changes = %+v", rec.changes)
	}
	if len(rec.clears) != 1 || rec.clears[0].Previous.Content != "one" {
		t.Fatalf("clears = %+v", rec.clears)
	}
}

// With no consumer running, a full queue drops the oldest event so the most
// recent clipboard state is the one that survives.
func TestDispatcherDropsOldestUnderBackpressure(t *testing.T) {
	t.Parallel()
	rec := newRecordingSink()
	d := NewDispatcher(2, logx.Logger{}, rec)

	d.Emit(changed("a"))
	d.Emit(changed("b"))
	d.Emit(changed("c")) // drops a
	d.Emit(changed("d")) // drops b

	if got := d.Dropped(); got != 2 {
		t.Fatalf("Dropped = %d, want 2", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()
	waitDelivered(t, rec, 2)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.changes) != 2 || rec.changes[0].Snapshot.Content != "c" || rec.changes[1].Snapshot.Content != "d" {
		t.Fatalf("delivered = %+v, want the two newest events", rec.changes)
	}
}

// A failing sink never stops delivery to the others.
func TestDispatcherContinuesPastSinkFailure(t *testing.T) {
	t.Parallel()
	bad := newRecordingSink()
	bad.err = errors.New("sink broken")
	good := newRecordingSink()
	d := NewDispatcher(8, logx.Logger{}, bad, good)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	d.Emit(changed("payload"))
	waitDelivered(t, bad, 1)
	waitDelivered(t, good, 1)

	good.mu.Lock()
	defer good.mu.Unlock()
	if len(good.changes) != 1 {
		t.Fatalf("healthy sink got %d deliveries, want 1", len(good.changes))
	}
}

func TestHistorySinkAppendsBothKinds(t *testing.T) {
	t.Parallel()
	ring := history.NewRing(4)
	s := NewHistorySink(ring)

	if err := s.OnChange(context.Background(), changed("x")); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if err := s.OnCleared(context.Background(), cleared("x")); err != nil {
		t.Fatalf("OnCleared: %v", err)
	}
	if ring.Len() != 2 {
		t.Fatalf("ring length = %d, want 2", ring.Len())
	}
	recent := ring.Recent(1)
	if len(recent) != 1 || !recent[0].Cleared() {
		t.Fatalf("newest event should be the clear: %+v", recent)
	}
}

func TestLogSinkRateLimitSuppresses(t *testing.T) {
	t.Parallel()
	s := NewLogSink(logx.Logger{}, 1, 0)

	// Burst of 1: the first call passes, the rest are suppressed, never an error.
	for i := 0; i < 5; i++ {
		if err := s.OnChange(context.Background(), changed("x")); err != nil {
			t.Fatalf("OnChange: %v", err)
		}
	}
	if s.suppressed == 0 {
		t.Fatal("expected suppressed deliveries under the rate limit")
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"line one\nline two\ttabbed", 80, "line one line two tabbed"},
		{"abcdefgh", 5, "abcde..."},
		{"  padded   out  ", 80, "padded out"},
	}
	for _, tt := range tests {
		if got := preview(tt.in, tt.max); got != tt.want {
			t.Fatalf("preview(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
