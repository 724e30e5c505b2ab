package storage

import (
	"context"
	"fmt"
	"time"

	"clipwatch/internal/eventbus"
	logx "clipwatch/pkg/logx"
)

const appendTimeout = 2 * time.Second

// Recorder subscribes to lifecycle events on the bus and appends them to the
// audit store. Clipboard change/clear events are deliberately ignored:
// content (and even change cadence) is not operational audit material.
type Recorder struct {
	store Store
	log   logx.Logger
}

func NewRecorder(store Store, log logx.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

func (r *Recorder) Run(ctx context.Context, bus eventbus.Bus) error {
	ch, unsub := bus.Subscribe(64)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			entry, want := auditFor(ev)
			if !want {
				continue
			}
			actx, cancel := context.WithTimeout(context.Background(), appendTimeout)
			err := r.store.AppendAudit(actx, entry)
			cancel()
			if err != nil && !r.log.IsZero() {
				r.log.Warn("audit append failed", logx.String("event", ev.Type), logx.Err(err))
			}
		}
	}
}

func auditFor(ev eventbus.Event) (AuditEntry, bool) {
	switch ev.Type {
	case eventbus.TypeEngineStarted, eventbus.TypeEngineStopped:
		return AuditEntry{At: ev.Time, Component: "engine", Event: ev.Type, OK: true}, true
	case eventbus.TypeWatchdogRestarted:
		return AuditEntry{At: ev.Time, Component: "watchdog", Event: ev.Type, Detail: detailOf(ev.Data), OK: true}, true
	case eventbus.TypeWatchdogCheckError:
		return AuditEntry{At: ev.Time, Component: "watchdog", Event: ev.Type, Detail: detailOf(ev.Data), OK: false}, true
	default:
		return AuditEntry{}, false
	}
}

func detailOf(data any) string {
	if data == nil {
		return ""
	}
	return fmt.Sprintf("%+v", data)
}
