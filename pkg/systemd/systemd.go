// Package systemd shells out to systemctl for unit state and control.
//
// It exists for environments where the D-Bus system socket is not reachable
// from this process (hardened units, containers with systemd on the host);
// the dbus-based registry in internal/watchdog is preferred when available.
package systemd

import (
	"context"
	"os/exec"
	"strings"
)

// IsActive reports whether the unit is currently active or activating.
// systemctl exits non-zero for inactive units, so the exit code alone is not
// an error signal; the printed state decides.
func IsActive(ctx context.Context, unit string) (bool, error) {
	cmd := exec.CommandContext(ctx, "systemctl", "is-active", unit)
	out, _ := cmd.CombinedOutput()
	state := strings.TrimSpace(string(out))
	return state == "active" || state == "activating", nil
}

// Start requests a unit start and waits for systemctl to return.
func Start(ctx context.Context, unit string) error {
	return exec.CommandContext(ctx, "systemctl", "start", unit).Run()
}
