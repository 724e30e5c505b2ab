// Package history keeps a bounded in-memory buffer of recent change events.
// Nothing here is persisted; the buffer exists for observability (recent
// activity queries) and is capped so long uptimes cannot retain memory.
package history

import (
	"sync"

	"clipwatch/internal/monitor"
)

const defaultCapacity = 100

// Ring is a fixed-capacity ring buffer of ChangeEvents.
type Ring struct {
	mu   sync.Mutex
	buf  []monitor.ChangeEvent
	next int
	full bool
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Ring{buf: make([]monitor.ChangeEvent, capacity)}
}

func (r *Ring) Append(ev monitor.ChangeEvent) {
	r.mu.Lock()
	r.buf[r.next] = ev
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Recent returns up to n events, newest first. n <= 0 returns all retained
// events. The result is a copy; callers may hold it freely.
func (r *Ring) Recent(n int) []monitor.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.buf)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]monitor.ChangeEvent, 0, n)
	idx := r.next - 1
	for i := 0; i < n; i++ {
		if idx < 0 {
			idx = len(r.buf) - 1
		}
		out = append(out, r.buf[idx])
		idx--
	}
	return out
}
