package sink

import (
	"context"
	"sync/atomic"
	"time"

	"clipwatch/internal/monitor"
	logx "clipwatch/pkg/logx"
)

const (
	defaultQueueSize   = 64
	deliverTimeout     = 5 * time.Second
	defaultPreviewRune = 80
)

// Dispatcher fans out change events to registered sinks.
//
// Emit is non-blocking: when the queue is full the oldest queued event is
// dropped in favor of the newest (the latest clipboard state is the one that
// matters). Run owns delivery and must be hosted on its own goroutine.
type Dispatcher struct {
	log     logx.Logger
	queue   chan monitor.ChangeEvent
	sinks   []Sink
	dropped atomic.Uint64
}

func NewDispatcher(queueSize int, log logx.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		log:   log,
		queue: make(chan monitor.ChangeEvent, queueSize),
		sinks: sinks,
	}
}

// Emit implements monitor.Emitter.
func (d *Dispatcher) Emit(ev monitor.ChangeEvent) {
	select {
	case d.queue <- ev:
		return
	default:
	}
	// Queue full: drop the oldest event, then try once more.
	select {
	case <-d.queue:
		d.dropped.Add(1)
	default:
	}
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded under backpressure.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Run consumes the queue until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev monitor.ChangeEvent) {
	for _, s := range d.sinks {
		dctx, cancel := context.WithTimeout(ctx, deliverTimeout)
		var err error
		if ev.Cleared() {
			err = s.OnCleared(dctx, ev)
		} else {
			err = s.OnChange(dctx, ev)
		}
		cancel()
		if err != nil && !d.log.IsZero() {
			d.log.Warn("sink delivery failed", logx.String("sink", s.Name()), logx.Err(err))
		}
	}
}
