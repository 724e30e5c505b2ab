// Package clipboard provides the system-clipboard Snapshot source.
//
// Reads go through github.com/atotto/clipboard, which shells out to the
// platform utility (xclip/xsel, pbpaste, ...). A wedged utility must not
// stall the monitor loop, so every read is guarded by the caller's context
// deadline: on expiry the read is abandoned and reported as a transient
// error for the engine's backoff policy.
package clipboard

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"

	"clipwatch/internal/monitor"
	logx "clipwatch/pkg/logx"
)

// ReadFunc is the raw clipboard accessor. Swappable for tests.
type ReadFunc func() (string, error)

// System reads the OS clipboard.
type System struct {
	read ReadFunc
	log  logx.Logger
}

type Option func(*System)

// WithReadFunc overrides the raw accessor (tests).
func WithReadFunc(fn ReadFunc) Option {
	return func(s *System) {
		if fn != nil {
			s.read = fn
		}
	}
}

func NewSystem(log logx.Logger, opts ...Option) *System {
	s := &System{read: clipboard.ReadAll, log: log}
	for _, o := range opts {
		o(s)
	}
	if clipboard.Unsupported && !log.IsZero() {
		log.Warn("no clipboard utility available on this platform; reads will fail until one is installed")
	}
	return s
}

type readResult struct {
	content string
	err     error
}

// Read returns the current clipboard snapshot. An empty clipboard yields
// Present=false and no error. The context deadline bounds read latency; a
// read still in flight at expiry is abandoned (its goroutine finishes into a
// buffered channel and is collected).
func (s *System) Read(ctx context.Context) (monitor.Snapshot, error) {
	ch := make(chan readResult, 1)
	go func() {
		content, err := s.read()
		ch <- readResult{content: content, err: err}
	}()

	select {
	case <-ctx.Done():
		return monitor.Snapshot{}, fmt.Errorf("clipboard read: %w", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return monitor.Snapshot{}, fmt.Errorf("clipboard read: %w", res.err)
		}
		snap := monitor.Snapshot{CapturedAt: time.Now()}
		if res.content != "" {
			snap.Content = res.content
			snap.Present = true
		}
		return snap, nil
	}
}
