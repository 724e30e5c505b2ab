package monitor

import (
	"testing"
	"time"
)

func TestSnapshotEqualIgnoresCaptureTime(t *testing.T) {
	t.Parallel()
	a := Snapshot{Content: "x", Present: true, CapturedAt: time.Now()}
	b := Snapshot{Content: "x", Present: true, CapturedAt: time.Now().Add(time.Hour)}
	if !a.Equal(b) {
		t.Fatal("snapshots with identical content must be equal regardless of capture time")
	}
	if a.Equal(Snapshot{Content: "x"}) {
		t.Fatal("presence must participate in equality")
	}
}

func TestSnapshotLenIsRuneBased(t *testing.T) {
	t.Parallel()
	s := Snapshot{Content: "héllo", Present: true}
	if got := s.Len(); got != 5 {
		t.Fatalf("Len = %d, want 5 runes", got)
	}
	if got := (Snapshot{Content: "ignored"}).Len(); got != 0 {
		t.Fatalf("absent snapshot Len = %d, want 0", got)
	}
}

func TestContentHashFoldsPresence(t *testing.T) {
	t.Parallel()
	emptyPresent := contentHash(Snapshot{Content: "", Present: true})
	cleared := contentHash(Snapshot{})
	if emptyPresent == cleared {
		t.Fatal("present-empty and cleared must hash differently")
	}
	if contentHash(present("a")) == contentHash(present("b")) {
		t.Fatal("different content must hash differently")
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"abcdef", 3, "abc"},
		{"abc", 10, "abc"},
		{"abc", 0, "abc"}, // no cap
		{"héllo wörld", 5, "héllo"},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.max); got != tt.want {
			t.Fatalf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestChangeEventCleared(t *testing.T) {
	t.Parallel()
	ev := ChangeEvent{Snapshot: absent(), Previous: present("x")}
	if !ev.Cleared() {
		t.Fatal("event with absent snapshot must report cleared")
	}
	ev = ChangeEvent{Snapshot: present("y"), Previous: present("x")}
	if ev.Cleared() {
		t.Fatal("event with present snapshot must not report cleared")
	}
}
