// Package storage provides the optional operational audit log.
//
// It records lifecycle events (engine start/stop, watchdog restarts, check
// failures) so operators can reconstruct what the daemon did across
// restarts. Clipboard content is never written here: the change history
// lives only in the in-memory ring.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logx "clipwatch/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//   - "" or "none": storage disabled (appends become no-ops)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one operational event. Keep it compact and schema-stable.
type AuditEntry struct {
	At        time.Time
	Component string // "engine", "watchdog"
	Event     string // eventbus event type
	Detail    string
	OK        bool
}

type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)
	Close() error
}

// Open returns a Store for the configured driver. A disabled store accepts
// appends silently so callers don't need to branch.
func Open(cfg Config, log logx.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return disabledStore{}, nil
	case "sqlite":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

type disabledStore struct{}

func (disabledStore) AppendAudit(context.Context, AuditEntry) error { return nil }
func (disabledStore) RecentAudit(context.Context, int) ([]AuditEntry, error) {
	return nil, ErrDisabled
}
func (disabledStore) Close() error { return nil }
