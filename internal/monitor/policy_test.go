package monitor

import (
	"testing"
	"time"
)

func TestPolicyDefaults(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy()
	if p.UltraFastEvery != 100*time.Millisecond || p.SlowEvery != 1500*time.Millisecond {
		t.Fatalf("unexpected default intervals: %+v", p)
	}
	if p.FastAfter != 15 || p.NormalAfter != 40 || p.SlowAfter != 80 {
		t.Fatalf("unexpected default thresholds: %+v", p)
	}
}

func TestPolicyInterval(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy()
	tests := []struct {
		mode Mode
		want time.Duration
	}{
		{ModeUltraFast, 100 * time.Millisecond},
		{ModeFast, 200 * time.Millisecond},
		{ModeNormal, 500 * time.Millisecond},
		{ModeSlow, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.Interval(tt.mode); got != tt.want {
			t.Fatalf("Interval(%v) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

// Downgrades move one tier at a time, even when the no-change counter is far
// past every threshold.
func TestPolicyNextSingleStep(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy()

	if got := p.Next(ModeUltraFast, 10_000); got != ModeFast {
		t.Fatalf("Next(UltraFast, huge) = %v, want Fast", got)
	}
	if got := p.Next(ModeFast, 10_000); got != ModeNormal {
		t.Fatalf("Next(Fast, huge) = %v, want Normal", got)
	}
	if got := p.Next(ModeNormal, 10_000); got != ModeSlow {
		t.Fatalf("Next(Normal, huge) = %v, want Slow", got)
	}
	if got := p.Next(ModeSlow, 10_000); got != ModeSlow {
		t.Fatalf("Next(Slow, huge) = %v, want Slow", got)
	}
}

func TestPolicyNextThresholds(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy()

	if got := p.Next(ModeUltraFast, p.FastAfter); got != ModeUltraFast {
		t.Fatalf("at threshold: Next = %v, want UltraFast", got)
	}
	if got := p.Next(ModeUltraFast, p.FastAfter+1); got != ModeFast {
		t.Fatalf("past threshold: Next = %v, want Fast", got)
	}
}

// A long quiet stretch settles at Slow and stays there without oscillating.
func TestPolicyStabilizesAtSlow(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy()

	mode := ModeNormal
	sawSlowAt := -1
	for n := 1; n <= 300; n++ {
		next := p.Next(mode, n)
		if next < mode {
			t.Fatalf("tier upgraded without a change at tick %d: %v -> %v", n, mode, next)
		}
		if next-mode > 1 {
			t.Fatalf("tier skipped at tick %d: %v -> %v", n, mode, next)
		}
		mode = next
		if mode == ModeSlow && sawSlowAt < 0 {
			sawSlowAt = n
		}
		if sawSlowAt >= 0 && mode != ModeSlow {
			t.Fatalf("mode left Slow at tick %d", n)
		}
	}
	if mode != ModeSlow {
		t.Fatalf("mode = %v after 300 quiet ticks, want Slow", mode)
	}
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	bad := Policy{
		UltraFastEvery: time.Second,
		FastEvery:      100 * time.Millisecond,
		NormalEvery:    500 * time.Millisecond,
		SlowEvery:      1500 * time.Millisecond,
	}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for decreasing intervals")
	}
}

func TestModeString(t *testing.T) {
	t.Parallel()
	if ModeUltraFast.String() != "ultrafast" || ModeSlow.String() != "slow" {
		t.Fatalf("unexpected mode names: %s %s", ModeUltraFast, ModeSlow)
	}
}
