package monitor

import (
	"hash/fnv"
	"time"
)

// Snapshot is a single immutable read of the clipboard.
//
// Present=false denotes a legitimately empty/cleared clipboard, which is
// different from a read error (errors never produce a Snapshot).
type Snapshot struct {
	Content    string
	Present    bool
	CapturedAt time.Time
}

// Equal compares presence and content. CapturedAt is intentionally ignored:
// re-reading identical content is not a change.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.Present == o.Present && s.Content == o.Content
}

// Len returns the content length in runes. Classification thresholds are
// rune-based so multi-byte text doesn't skew length deltas.
func (s Snapshot) Len() int {
	if !s.Present {
		return 0
	}
	n := 0
	for range s.Content {
		n++
	}
	return n
}

// ChangeEvent is emitted once per accepted change and consumed immediately
// by the sink dispatcher. Snapshot.Present=false marks a clear.
type ChangeEvent struct {
	Snapshot   Snapshot
	Previous   Snapshot
	DetectedAt time.Time
}

// Cleared reports whether this event represents the clipboard being emptied.
func (e ChangeEvent) Cleared() bool { return !e.Snapshot.Present }

// contentHash is the cheap equality key used for emit dedup. Presence is
// folded in so "" (present) and cleared hash differently.
func contentHash(s Snapshot) uint64 {
	h := fnv.New64a()
	if s.Present {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte(s.Content))
	return h.Sum64()
}

// truncateRunes caps s at max runes. Inputs longer than the cap are cut
// before classification and emission to bound worst-case edit-distance cost.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
