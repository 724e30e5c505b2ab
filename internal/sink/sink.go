// Package sink delivers accepted change events to consumers.
//
// The engine emits into a Dispatcher, which decouples sink I/O latency from
// the polling cadence: events land in a bounded queue with drop-oldest
// backpressure and are delivered by a single consumer goroutine. Sinks must
// tolerate repeated delivery of the same content; the engine dedups, but the
// contract does not assume perfect dedup upstream.
package sink

import (
	"context"

	"clipwatch/internal/monitor"
)

// Sink consumes change events. A failed delivery never stops polling: the
// dispatcher logs the error and moves on.
type Sink interface {
	Name() string
	// OnChange handles an accepted change carrying new content.
	OnChange(ctx context.Context, ev monitor.ChangeEvent) error
	// OnCleared handles the clipboard being emptied; ev.Snapshot is absent
	// and ev.Previous holds the last content.
	OnCleared(ctx context.Context, ev monitor.ChangeEvent) error
}
