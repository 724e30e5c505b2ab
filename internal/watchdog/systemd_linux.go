//go:build linux

package watchdog

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// SystemdRegistry asks systemd for unit liveness and issues unit starts.
// Used when the monitor engine runs as its own systemd unit and clipwatch
// supervises it from outside the process.
type SystemdRegistry struct {
	conn *dbus.Conn
}

func NewSystemdRegistry(ctx context.Context) (*SystemdRegistry, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	return &SystemdRegistry{conn: conn}, nil
}

func (r *SystemdRegistry) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

// IsRunning reports whether the unit's ActiveState is active or activating.
// "activating" counts as alive so the watchdog doesn't pile a second start
// onto a unit that is already coming up.
func (r *SystemdRegistry) IsRunning(ctx context.Context, task string) (bool, error) {
	props, err := r.conn.GetUnitPropertiesContext(ctx, unitName(task))
	if err != nil {
		return false, fmt.Errorf("unit properties %q: %w", task, err)
	}
	state, _ := props["ActiveState"].(string)
	return state == "active" || state == "activating", nil
}

func (r *SystemdRegistry) Start(ctx context.Context, task string) error {
	done := make(chan string, 1)
	if _, err := r.conn.StartUnitContext(ctx, unitName(task), "replace", done); err != nil {
		return fmt.Errorf("start unit %q: %w", task, err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("start unit %q: job result %q", task, result)
		}
	}
	return nil
}
