package monitor

import (
	"fmt"
	"time"
)

// Mode is the current responsiveness tier of the polling loop.
type Mode int

const (
	ModeUltraFast Mode = iota
	ModeFast
	ModeNormal
	ModeSlow
)

func (m Mode) String() string {
	switch m {
	case ModeUltraFast:
		return "ultrafast"
	case ModeFast:
		return "fast"
	case ModeNormal:
		return "normal"
	case ModeSlow:
		return "slow"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Policy maps tiers to poll intervals and defines when a quiet clipboard
// downgrades the tier. It is a plain value so deployments can tune it from
// config; the exact numbers are policy, not contract.
//
// Downgrade thresholds are consecutive-no-change tick counts: the engine
// moves one step down once the counter exceeds the threshold for the tier
// below the current one.
type Policy struct {
	UltraFastEvery time.Duration
	FastEvery      time.Duration
	NormalEvery    time.Duration
	SlowEvery      time.Duration

	FastAfter   int // UltraFast -> Fast
	NormalAfter int // Fast -> Normal
	SlowAfter   int // Normal -> Slow
}

// DefaultPolicy returns the stock tuning: 100ms/200ms/500ms/1.5s with
// downgrades after 15/40/80 quiet ticks.
func DefaultPolicy() Policy {
	return Policy{}.withDefaults()
}

func (p Policy) withDefaults() Policy {
	if p.UltraFastEvery <= 0 {
		p.UltraFastEvery = 100 * time.Millisecond
	}
	if p.FastEvery <= 0 {
		p.FastEvery = 200 * time.Millisecond
	}
	if p.NormalEvery <= 0 {
		p.NormalEvery = 500 * time.Millisecond
	}
	if p.SlowEvery <= 0 {
		p.SlowEvery = 1500 * time.Millisecond
	}
	if p.FastAfter <= 0 {
		p.FastAfter = 15
	}
	if p.NormalAfter <= p.FastAfter {
		p.NormalAfter = p.FastAfter + 25
	}
	if p.SlowAfter <= p.NormalAfter {
		p.SlowAfter = p.NormalAfter + 40
	}
	return p
}

// Validate rejects tunings that would break the tier ordering.
func (p Policy) Validate() error {
	p2 := p.withDefaults()
	if p2.UltraFastEvery > p2.FastEvery || p2.FastEvery > p2.NormalEvery || p2.NormalEvery > p2.SlowEvery {
		return fmt.Errorf("policy intervals must be non-decreasing across tiers")
	}
	return nil
}

// Interval returns the poll interval for a tier.
func (p Policy) Interval(m Mode) time.Duration {
	switch m {
	case ModeUltraFast:
		return p.UltraFastEvery
	case ModeFast:
		return p.FastEvery
	case ModeNormal:
		return p.NormalEvery
	default:
		return p.SlowEvery
	}
}

// Next computes the tier after a tick with no accepted change, given the
// updated consecutive-no-change count. Degradation is at most one step per
// call: UltraFast can only reach Fast next, never jump to Slow.
func (p Policy) Next(cur Mode, noChange int) Mode {
	switch cur {
	case ModeUltraFast:
		if noChange > p.FastAfter {
			return ModeFast
		}
	case ModeFast:
		if noChange > p.NormalAfter {
			return ModeNormal
		}
	case ModeNormal:
		if noChange > p.SlowAfter {
			return ModeSlow
		}
	}
	return cur
}
