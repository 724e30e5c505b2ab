package watchdog

import (
	"context"
	"strings"

	"clipwatch/pkg/systemd"
)

// SystemctlRegistry supervises an external systemd unit through the
// systemctl binary. It is the fallback for hosts where the D-Bus system
// socket is not reachable from this process; prefer SystemdRegistry
// otherwise.
type SystemctlRegistry struct{}

func NewSystemctlRegistry() *SystemctlRegistry { return &SystemctlRegistry{} }

func (*SystemctlRegistry) IsRunning(ctx context.Context, task string) (bool, error) {
	return systemd.IsActive(ctx, unitName(task))
}

func (*SystemctlRegistry) Start(ctx context.Context, task string) error {
	return systemd.Start(ctx, unitName(task))
}

func unitName(task string) string {
	if strings.HasSuffix(task, ".service") {
		return task
	}
	return task + ".service"
}
