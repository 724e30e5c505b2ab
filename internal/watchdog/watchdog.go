// Package watchdog keeps the monitor engine's host task running.
//
// The watchdog is deliberately decoupled from the engine: it never calls
// into engine internals and shares no mutable state or locks with it.
// Liveness is asked of a Registry (the execution environment) and restarts
// are requested through the same interface. The fixed check period is the
// only rate limit on restarts; an always-on background task wants unlimited
// retries, not an escalating backoff.
package watchdog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"clipwatch/internal/eventbus"
	logx "clipwatch/pkg/logx"
)

// Registry is the process/task table the watchdog consults. Implementations
// must answer liveness without relying on any flag the supervised task
// itself maintains.
type Registry interface {
	IsRunning(ctx context.Context, task string) (bool, error)
	Start(ctx context.Context, task string) error
}

// Config controls the watchdog.
type Config struct {
	// Task names the supervised entry in the Registry.
	Task string
	// Period between liveness checks. Default 30s.
	Period time.Duration
	// CheckTimeout bounds a single check+restart attempt. Default 10s.
	CheckTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Period <= 0 {
		c.Period = 30 * time.Second
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = 10 * time.Second
	}
	return c
}

// Record is the watchdog's own observable state. It has an independent
// lifecycle from the engine's state.
type Record struct {
	LastCheckAt   time.Time
	TargetAlive   bool
	Checks        uint64
	Restarts      uint64
	LastRestartAt time.Time
	LastErr       string
}

// RestartInfo is the bus payload for watchdog.restarted events.
type RestartInfo struct {
	Task string
	At   time.Time
}

// CheckErrorInfo is the bus payload for watchdog.check_error events.
type CheckErrorInfo struct {
	Task string
	Err  string
}

type Watchdog struct {
	cfg Config
	reg Registry
	log logx.Logger
	bus eventbus.Bus

	// checking guards against overlapping checks if the registry is slow.
	checking atomic.Int32

	mu  sync.Mutex
	rec Record
}

type Option func(*Watchdog)

func WithLogger(log logx.Logger) Option {
	return func(w *Watchdog) { w.log = log }
}

func WithBus(bus eventbus.Bus) Option {
	return func(w *Watchdog) { w.bus = bus }
}

func New(cfg Config, reg Registry, opts ...Option) *Watchdog {
	w := &Watchdog{cfg: cfg.withDefaults(), reg: reg}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Snapshot returns a copy of the watchdog record.
func (w *Watchdog) Snapshot() Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rec
}

// Run performs an immediate first check, then checks on the fixed period
// until ctx is canceled. The period timer is cron-driven so scheduling
// survives independent of the engine loop's health.
func (w *Watchdog) Run(ctx context.Context) error {
	c := cron.New()
	spec := fmt.Sprintf("@every %s", w.cfg.Period)
	if _, err := c.AddFunc(spec, func() { w.checkOnce(ctx) }); err != nil {
		return fmt.Errorf("watchdog schedule: %w", err)
	}

	if !w.log.IsZero() {
		w.log.Info("watchdog started",
			logx.String("task", w.cfg.Task),
			logx.Duration("period", w.cfg.Period),
		)
	}

	w.checkOnce(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	if !w.log.IsZero() {
		w.log.Info("watchdog stopped", logx.String("task", w.cfg.Task))
	}
	return nil
}

// checkOnce runs one liveness check and issues at most one Start. A check
// still in flight when the next period fires makes the new one a no-op, so
// duplicate restarts within one period are impossible.
func (w *Watchdog) checkOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !w.checking.CompareAndSwap(0, 1) {
		return
	}
	defer w.checking.Store(0)

	cctx, cancel := context.WithTimeout(ctx, w.cfg.CheckTimeout)
	defer cancel()

	now := time.Now()
	alive, err := w.reg.IsRunning(cctx, w.cfg.Task)
	if err != nil {
		// Registry trouble is retried on the next fixed period, never escalated.
		w.note(func(r *Record) {
			r.LastCheckAt = now
			r.Checks++
			r.LastErr = err.Error()
		})
		if !w.log.IsZero() {
			w.log.Warn("watchdog liveness check failed", logx.String("task", w.cfg.Task), logx.Err(err))
		}
		w.publishCheckError(err)
		return
	}

	w.note(func(r *Record) {
		r.LastCheckAt = now
		r.Checks++
		r.TargetAlive = alive
		r.LastErr = ""
	})
	if alive {
		return
	}

	if !w.log.IsZero() {
		w.log.Warn("supervised task not running; restarting", logx.String("task", w.cfg.Task))
	}
	if serr := w.reg.Start(cctx, w.cfg.Task); serr != nil {
		w.note(func(r *Record) { r.LastErr = serr.Error() })
		if !w.log.IsZero() {
			w.log.Error("watchdog restart failed", logx.String("task", w.cfg.Task), logx.Err(serr))
		}
		w.publishCheckError(serr)
		return
	}

	at := time.Now()
	w.note(func(r *Record) {
		r.Restarts++
		r.LastRestartAt = at
		r.TargetAlive = true
	})
	if !w.log.IsZero() {
		w.log.Info("watchdog restarted task", logx.String("task", w.cfg.Task), logx.Uint64("restarts", w.Snapshot().Restarts))
	}
	if w.bus != nil {
		w.bus.Publish(eventbus.Event{
			Type: eventbus.TypeWatchdogRestarted,
			Time: at,
			Data: RestartInfo{Task: w.cfg.Task, At: at},
		})
	}
}

func (w *Watchdog) note(fn func(r *Record)) {
	w.mu.Lock()
	fn(&w.rec)
	w.mu.Unlock()
}

func (w *Watchdog) publishCheckError(err error) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(eventbus.Event{
		Type: eventbus.TypeWatchdogCheckError,
		Data: CheckErrorInfo{Task: w.cfg.Task, Err: err.Error()},
	})
}
