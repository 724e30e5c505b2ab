package monitor

import (
	"context"
	"sync"
	"time"

	"clipwatch/internal/eventbus"
	logx "clipwatch/pkg/logx"
)

// Source reads the externally-mutated clipboard state.
//
// Contract:
//   - safe to call at sub-second cadence
//   - a legitimately empty clipboard returns Present=false, not an error
//   - errors are transient and retryable
type Source interface {
	Read(ctx context.Context) (Snapshot, error)
}

// Emitter consumes accepted changes. Emit MUST NOT block: the engine calls
// it inline between ticks and sink latency must not delay the poll cadence.
type Emitter interface {
	Emit(ev ChangeEvent)
}

// Holder is the wake-lock-equivalent keeping the host awake while the loop
// runs. Acquire is re-armed from the tick loop and always carries a hard cap
// so a stuck process can't retain the resource forever.
type Holder interface {
	Acquire(maxHold time.Duration) error
	Release()
}

// NopHolder is the default on platforms without an inhibition mechanism.
type NopHolder struct{}

func (NopHolder) Acquire(time.Duration) error { return nil }
func (NopHolder) Release()                    {}

// Config controls the engine.
//
// All knobs have working defaults; see withDefaults.
type Config struct {
	Policy     Policy
	Classifier ClassifierConfig

	// MaxContentLength caps snapshot content (runes) before classification
	// and emission. Default 5000.
	MaxContentLength int

	// ReadTimeout bounds a single Source.Read so a wedged provider cannot
	// stall the loop. Default 400ms.
	ReadTimeout time.Duration

	// Read-error policy: below MaxReadErrors each failure sleeps
	// ErrorRetryDelay; at the threshold the engine sleeps
	// min(ErrorBackoffBase * consecutiveErrors, ErrorBackoffMax), resets the
	// counter and returns to the fastest tier. The loop never exits on read
	// errors.
	MaxReadErrors    int           // default 5
	ErrorRetryDelay  time.Duration // default 2s
	ErrorBackoffBase time.Duration // default 2s
	ErrorBackoffMax  time.Duration // default 15s

	// HoldMax caps the wake holder; HoldRenewEvery re-arms it from the loop.
	HoldMax        time.Duration // default 60m
	HoldRenewEvery time.Duration // default 1m
}

func (c Config) withDefaults() Config {
	c.Policy = c.Policy.withDefaults()
	c.Classifier = c.Classifier.withDefaults()
	if c.MaxContentLength <= 0 {
		c.MaxContentLength = 5000
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 400 * time.Millisecond
	}
	if c.MaxReadErrors <= 0 {
		c.MaxReadErrors = 5
	}
	if c.ErrorRetryDelay <= 0 {
		c.ErrorRetryDelay = 2 * time.Second
	}
	if c.ErrorBackoffBase <= 0 {
		c.ErrorBackoffBase = 2 * time.Second
	}
	if c.ErrorBackoffMax <= 0 {
		c.ErrorBackoffMax = 15 * time.Second
	}
	if c.HoldMax <= 0 {
		c.HoldMax = 60 * time.Minute
	}
	if c.HoldRenewEvery <= 0 {
		c.HoldRenewEvery = time.Minute
	}
	return c
}

// State is the engine's single-writer state. StateNow returns copies;
// nothing outside the tick loop mutates it.
type State struct {
	Last                Snapshot
	LastHash            uint64
	Mode                Mode
	ConsecutiveNoChange int
	ConsecutiveErrors   int

	// Primed flips on the first successful read: whatever was already on the
	// clipboard when the loop starts is the baseline, not a change.
	Primed bool

	Ticks      uint64
	Emitted    uint64
	LastTickAt time.Time
}

// ReadErrorInfo is the bus payload for engine.read_error events.
// Content never travels on the bus.
type ReadErrorInfo struct {
	Err         string
	Consecutive int
}

// ChangeInfo is the bus payload for clipboard.changed / clipboard.cleared.
type ChangeInfo struct {
	Cleared    bool
	Length     int
	DetectedAt time.Time
}

type Engine struct {
	mu  sync.Mutex
	cfg Config
	cls Classifier
	st  State

	src    Source
	emit   Emitter
	bus    eventbus.Bus
	log    logx.Logger
	holder Holder

	nudge chan struct{}

	// test seams; defaults are the real clock.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type EngineOption func(*Engine)

func WithLogger(log logx.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

func WithBus(bus eventbus.Bus) EngineOption {
	return func(e *Engine) { e.bus = bus }
}

func WithHolder(h Holder) EngineOption {
	return func(e *Engine) {
		if h != nil {
			e.holder = h
		}
	}
}

// WithClock overrides time sources. Tests pass an instant sleep that records
// requested durations; nil arguments keep the real clock.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

func NewEngine(cfg Config, src Source, emit Emitter, opts ...EngineOption) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:    cfg,
		cls:    NewClassifier(cfg.Classifier),
		src:    src,
		emit:   emit,
		holder: NopHolder{},
		nudge:  make(chan struct{}, 1),
		now:    time.Now,
		sleep:  ctxSleep,
		st:     State{Mode: ModeNormal},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Apply swaps tunables at runtime. Takes effect on the next tick.
func (e *Engine) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	e.mu.Lock()
	e.cfg = cfg
	e.cls = NewClassifier(cfg.Classifier)
	e.mu.Unlock()
}

// Nudge requests an immediate tick (e.g. a platform clipboard-change signal).
// It coalesces with the interval timer into the same sequential executor, so
// a nudge landing mid-tick never causes overlap.
func (e *Engine) Nudge() {
	select {
	case e.nudge <- struct{}{}:
	default:
	}
}

// StateNow returns a copy of the engine state for observability.
func (e *Engine) StateNow() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st
}

// Run executes the sampling loop until ctx is canceled. An in-flight tick is
// always finished before returning; partial events are never emitted.
//
// Run is intended to be hosted as a named task (see the watchdog package) so
// liveness can be checked and restarts issued from outside.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	if err := e.holder.Acquire(cfg.HoldMax); err != nil && !e.log.IsZero() {
		e.log.Warn("wake holder acquire failed", logx.Err(err))
	}
	lastHold := e.now()
	defer e.holder.Release()

	if e.bus != nil {
		e.bus.Publish(eventbus.Event{Type: eventbus.TypeEngineStarted, Time: e.now()})
	}
	defer func() {
		if e.bus != nil {
			e.bus.Publish(eventbus.Event{Type: eventbus.TypeEngineStopped, Time: e.now()})
		}
	}()
	if !e.log.IsZero() {
		e.log.Info("monitor engine started",
			logx.Duration("ultrafast", cfg.Policy.UltraFastEvery),
			logx.Duration("slow", cfg.Policy.SlowEvery),
			logx.Int("max_content_length", cfg.MaxContentLength),
		)
	}

	// First tick fires immediately.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		case <-e.nudge:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		interval := e.tick(ctx)
		if ctx.Err() != nil {
			return nil
		}

		// Re-arm the wake holder from the healthy loop; the cap means a
		// wedged process eventually lets go of the resource.
		e.mu.Lock()
		renewEvery := e.cfg.HoldRenewEvery
		holdMax := e.cfg.HoldMax
		e.mu.Unlock()
		if e.now().Sub(lastHold) >= renewEvery {
			if err := e.holder.Acquire(holdMax); err != nil && !e.log.IsZero() {
				e.log.Warn("wake holder renew failed", logx.Err(err))
			}
			lastHold = e.now()
		}

		timer.Reset(interval)
	}
}

// tick runs one read+classify+emit cycle and returns the next poll interval.
func (e *Engine) tick(ctx context.Context) time.Duration {
	e.mu.Lock()
	cfg := e.cfg
	cls := e.cls
	st := e.st
	e.mu.Unlock()

	st.Ticks++
	st.LastTickAt = e.now()

	readCtx, cancel := context.WithTimeout(ctx, cfg.ReadTimeout)
	snap, err := e.src.Read(readCtx)
	cancel()

	if err != nil {
		st.ConsecutiveErrors++
		if e.bus != nil {
			e.bus.Publish(eventbus.Event{
				Type: eventbus.TypeEngineReadError,
				Data: ReadErrorInfo{Err: err.Error(), Consecutive: st.ConsecutiveErrors},
			})
		}
		if st.ConsecutiveErrors < cfg.MaxReadErrors {
			if !e.log.IsZero() {
				e.log.Debug("clipboard read failed; retrying",
					logx.Err(err), logx.Int("consecutive", st.ConsecutiveErrors))
			}
			_ = e.sleep(ctx, cfg.ErrorRetryDelay)
		} else {
			delay := cfg.ErrorBackoffBase * time.Duration(st.ConsecutiveErrors)
			if delay > cfg.ErrorBackoffMax {
				delay = cfg.ErrorBackoffMax
			}
			if !e.log.IsZero() {
				e.log.Warn("clipboard read failing; backing off",
					logx.Err(err), logx.Int("consecutive", st.ConsecutiveErrors), logx.Duration("backoff", delay))
			}
			_ = e.sleep(ctx, delay)
			// Attempt fast recovery once the backoff has been served.
			st.ConsecutiveErrors = 0
			st.Mode = ModeUltraFast
		}
		e.storeState(st)
		return cfg.Policy.Interval(st.Mode)
	}

	st.ConsecutiveErrors = 0
	snap.Content = truncateRunes(snap.Content, cfg.MaxContentLength)
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = e.now()
	}
	h := contentHash(snap)

	if !st.Primed {
		st.Last = snap
		st.LastHash = h
		st.Primed = true
		e.storeState(st)
		return cfg.Policy.Interval(st.Mode)
	}

	// Cheap dedup first: identical content never emits twice, regardless of
	// tier transitions in between.
	significant := h != st.LastHash && cls.IsSignificantChange(st.Last, snap)

	if significant {
		ev := ChangeEvent{Snapshot: snap, Previous: st.Last, DetectedAt: e.now()}
		e.emit.Emit(ev)
		e.publishChange(ev)

		st.Last = snap
		st.LastHash = h
		st.ConsecutiveNoChange = 0
		st.Mode = ModeUltraFast
		st.Emitted++
	} else {
		st.ConsecutiveNoChange++
		st.Mode = cfg.Policy.Next(st.Mode, st.ConsecutiveNoChange)
	}

	e.storeState(st)
	return cfg.Policy.Interval(st.Mode)
}

func (e *Engine) publishChange(ev ChangeEvent) {
	if e.bus == nil {
		return
	}
	typ := eventbus.TypeClipboardChanged
	if ev.Cleared() {
		typ = eventbus.TypeClipboardCleared
	}
	e.bus.Publish(eventbus.Event{
		Type: typ,
		Time: ev.DetectedAt,
		Data: ChangeInfo{Cleared: ev.Cleared(), Length: ev.Snapshot.Len(), DetectedAt: ev.DetectedAt},
	})
}

func (e *Engine) storeState(st State) {
	e.mu.Lock()
	e.st = st
	e.mu.Unlock()
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
