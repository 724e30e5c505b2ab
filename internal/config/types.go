package config

import "fmt"

// Config is the on-disk configuration. YAML and JSON are both accepted;
// unknown fields are rejected so typos surface at load time instead of
// silently running with defaults.
//
// All durations are Go duration strings (e.g. "250ms", "2s", "1m").
type Config struct {
	Monitor  MonitorConfig  `json:"monitor"`
	Watchdog WatchdogConfig `json:"watchdog"`
	History  HistoryConfig  `json:"history"`
	Sinks    SinksConfig    `json:"sinks"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Debug    DebugConfig    `json:"debug"`
}

// MonitorConfig tunes the adaptive polling engine. Every knob has a working
// default; an empty block is a valid configuration.
type MonitorConfig struct {
	Intervals IntervalsConfig `json:"intervals"`
	Downgrade DowngradeConfig `json:"downgrade"`

	// Classification tunables.
	MinChangeLength       int     `json:"min_change_length,omitempty"`       // default 2
	SimilarityThreshold   float64 `json:"similarity_threshold,omitempty"`    // default 0.92
	JaccardFallbackLength int     `json:"jaccard_fallback_length,omitempty"` // default 2000
	MaxContentLength      int     `json:"max_content_length,omitempty"`      // default 5000

	// Read/error policy.
	ReadTimeout      string `json:"read_timeout,omitempty"`       // default "400ms"
	MaxReadErrors    int    `json:"max_read_errors,omitempty"`    // default 5
	ErrorRetryDelay  string `json:"error_retry_delay,omitempty"`  // default "2s"
	ErrorBackoffBase string `json:"error_backoff_base,omitempty"` // default "2s"
	ErrorBackoffMax  string `json:"error_backoff_max,omitempty"`  // default "15s"

	// Wake holder cap/renewal.
	HoldMax        string `json:"hold_max,omitempty"`         // default "60m"
	HoldRenewEvery string `json:"hold_renew_every,omitempty"` // default "1m"
}

// IntervalsConfig maps activity tiers to poll intervals.
type IntervalsConfig struct {
	UltraFast string `json:"ultrafast,omitempty"` // default "100ms"
	Fast      string `json:"fast,omitempty"`      // default "200ms"
	Normal    string `json:"normal,omitempty"`    // default "500ms"
	Slow      string `json:"slow,omitempty"`      // default "1500ms"
}

// DowngradeConfig sets how many quiet ticks move the engine one tier down.
type DowngradeConfig struct {
	FastAfter   int `json:"fast_after,omitempty"`   // default 15
	NormalAfter int `json:"normal_after,omitempty"` // default 40
	SlowAfter   int `json:"slow_after,omitempty"`   // default 80
}

// WatchdogConfig controls the liveness supervisor.
//
// Registry values:
//   - "process": in-process task table (engine hosted in this binary)
//   - "systemd": ask systemd over D-Bus for unit state (linux only)
//   - "systemctl": shell out to systemctl (when the D-Bus socket is
//     unreachable from this process)
type WatchdogConfig struct {
	// Enabled is a pointer so "omitted" defaults to true while an explicit
	// false still turns the watchdog off.
	Enabled      *bool  `json:"enabled,omitempty"`
	Task         string `json:"task,omitempty"`          // default "clipwatch.engine"
	Period       string `json:"period,omitempty"`        // default "30s"
	CheckTimeout string `json:"check_timeout,omitempty"` // default "10s"
	Registry     string `json:"registry,omitempty"`      // default "process"
}

func (w WatchdogConfig) IsEnabled() bool {
	if w.Enabled == nil {
		return true
	}
	return *w.Enabled
}

type HistoryConfig struct {
	Capacity int `json:"capacity,omitempty"` // default 100
}

type SinksConfig struct {
	QueueSize int           `json:"queue_size,omitempty"` // default 64
	Log       LogSinkConfig `json:"log"`
}

type LogSinkConfig struct {
	Enabled       *bool `json:"enabled,omitempty"` // default true
	RatePerSec    int   `json:"rate_per_sec,omitempty"`
	PreviewLength int   `json:"preview_length,omitempty"`
}

func (l LogSinkConfig) IsEnabled() bool {
	if l.Enabled == nil {
		return true
	}
	return *l.Enabled
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// DebugConfig controls the optional local debug endpoint (pprof, /healthz,
// /statusz). Off by default; loopback bind by default.
type DebugConfig struct {
	Enabled       bool   `json:"enabled,omitempty"`
	Addr          string `json:"addr,omitempty"` // default "127.0.0.1:6060"
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	ReadTimeout   string `json:"read_timeout,omitempty"`
	WriteTimeout  string `json:"write_timeout,omitempty"`
	IdleTimeout   string `json:"idle_timeout,omitempty"`
}

// StorageConfig controls the optional audit log.
//
// Example:
//
//	storage: { driver: "sqlite", path: "./clipwatch.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// Validate checks cross-field constraints and duration syntax. It is also
// used as the hot-reload validator so a broken edit never replaces a good
// running config.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	durs := []struct{ path, raw string }{
		{"monitor.intervals.ultrafast", c.Monitor.Intervals.UltraFast},
		{"monitor.intervals.fast", c.Monitor.Intervals.Fast},
		{"monitor.intervals.normal", c.Monitor.Intervals.Normal},
		{"monitor.intervals.slow", c.Monitor.Intervals.Slow},
		{"monitor.read_timeout", c.Monitor.ReadTimeout},
		{"monitor.error_retry_delay", c.Monitor.ErrorRetryDelay},
		{"monitor.error_backoff_base", c.Monitor.ErrorBackoffBase},
		{"monitor.error_backoff_max", c.Monitor.ErrorBackoffMax},
		{"monitor.hold_max", c.Monitor.HoldMax},
		{"monitor.hold_renew_every", c.Monitor.HoldRenewEvery},
		{"watchdog.period", c.Watchdog.Period},
		{"watchdog.check_timeout", c.Watchdog.CheckTimeout},
	}
	for _, d := range durs {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	if t := c.Monitor.SimilarityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("monitor.similarity_threshold must be in [0,1], got %v", t)
	}
	if c.Monitor.MinChangeLength < 0 {
		return fmt.Errorf("monitor.min_change_length must be >= 0")
	}
	if c.History.Capacity < 0 {
		return fmt.Errorf("history.capacity must be >= 0")
	}
	switch c.Watchdog.Registry {
	case "", "process", "systemd", "systemctl":
	default:
		return fmt.Errorf("watchdog.registry must be \"process\", \"systemd\" or \"systemctl\", got %q", c.Watchdog.Registry)
	}
	if c.Debug.Enabled {
		for _, d := range []struct{ path, raw string }{
			{"debug.read_timeout", c.Debug.ReadTimeout},
			{"debug.write_timeout", c.Debug.WriteTimeout},
			{"debug.idle_timeout", c.Debug.IdleTimeout},
		} {
			if _, err := ParseDurationField(d.path, d.raw); err != nil {
				return err
			}
		}
	}
	if c.Storage != nil {
		switch c.Storage.Driver {
		case "", "none", "sqlite":
		default:
			return fmt.Errorf("storage.driver must be \"none\" or \"sqlite\", got %q", c.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}
