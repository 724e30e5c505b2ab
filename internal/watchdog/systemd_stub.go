//go:build !linux

package watchdog

import (
	"context"
	"errors"
)

var errSystemdUnsupported = errors.New("systemd registry requires linux")

// SystemdRegistry is unavailable off linux; the constructor fails and the
// wiring falls back to the in-process registry.
type SystemdRegistry struct{}

func NewSystemdRegistry(context.Context) (*SystemdRegistry, error) {
	return nil, errSystemdUnsupported
}

func (r *SystemdRegistry) Close() {}

func (r *SystemdRegistry) IsRunning(context.Context, string) (bool, error) {
	return false, errSystemdUnsupported
}

func (r *SystemdRegistry) Start(context.Context, string) error {
	return errSystemdUnsupported
}
