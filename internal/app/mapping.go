package app

import (
	"time"

	"clipwatch/internal/config"
	"clipwatch/internal/monitor"
	"clipwatch/internal/observability/debug"
	"clipwatch/internal/storage"
	"clipwatch/internal/watchdog"
	logx "clipwatch/pkg/logx"
)

const defaultTaskName = "clipwatch.engine"

func mapLogging(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
	}
}

func mapStorage(c *config.StorageConfig) storage.Config {
	if c == nil {
		return storage.Config{}
	}
	busy, _ := config.ParseDurationField("storage.busy_timeout", c.BusyTimeout)
	return storage.Config{
		Driver:      c.Driver,
		Path:        c.Path,
		BusyTimeout: busy,
	}
}

// buildMonitorConfig translates config-file strings into engine tunables.
// Values left empty fall through to the engine's defaults.
func buildMonitorConfig(mc config.MonitorConfig) (monitor.Config, error) {
	var (
		cfg monitor.Config
		err error
	)

	type durField struct {
		path string
		raw  string
		dst  *time.Duration
	}
	fields := []durField{
		{"monitor.intervals.ultrafast", mc.Intervals.UltraFast, &cfg.Policy.UltraFastEvery},
		{"monitor.intervals.fast", mc.Intervals.Fast, &cfg.Policy.FastEvery},
		{"monitor.intervals.normal", mc.Intervals.Normal, &cfg.Policy.NormalEvery},
		{"monitor.intervals.slow", mc.Intervals.Slow, &cfg.Policy.SlowEvery},
		{"monitor.read_timeout", mc.ReadTimeout, &cfg.ReadTimeout},
		{"monitor.error_retry_delay", mc.ErrorRetryDelay, &cfg.ErrorRetryDelay},
		{"monitor.error_backoff_base", mc.ErrorBackoffBase, &cfg.ErrorBackoffBase},
		{"monitor.error_backoff_max", mc.ErrorBackoffMax, &cfg.ErrorBackoffMax},
		{"monitor.hold_max", mc.HoldMax, &cfg.HoldMax},
		{"monitor.hold_renew_every", mc.HoldRenewEvery, &cfg.HoldRenewEvery},
	}
	for _, f := range fields {
		*f.dst, err = config.ParseDurationField(f.path, f.raw)
		if err != nil {
			return monitor.Config{}, err
		}
	}

	cfg.Policy.FastAfter = mc.Downgrade.FastAfter
	cfg.Policy.NormalAfter = mc.Downgrade.NormalAfter
	cfg.Policy.SlowAfter = mc.Downgrade.SlowAfter
	if err := cfg.Policy.Validate(); err != nil {
		return monitor.Config{}, err
	}

	cfg.Classifier = monitor.ClassifierConfig{
		MinChangeLength:       mc.MinChangeLength,
		SimilarityThreshold:   mc.SimilarityThreshold,
		JaccardFallbackLength: mc.JaccardFallbackLength,
	}
	cfg.MaxContentLength = mc.MaxContentLength
	cfg.MaxReadErrors = mc.MaxReadErrors
	return cfg, nil
}

func buildDebugConfig(dc config.DebugConfig) (debug.Config, error) {
	var (
		cfg debug.Config
		err error
	)
	cfg.Enabled = dc.Enabled
	cfg.Addr = dc.Addr
	cfg.Token = dc.Token
	cfg.AllowInsecure = dc.AllowInsecure

	type durField struct {
		path string
		raw  string
		dst  *time.Duration
	}
	for _, f := range []durField{
		{"debug.read_timeout", dc.ReadTimeout, &cfg.ReadTimeout},
		{"debug.write_timeout", dc.WriteTimeout, &cfg.WriteTimeout},
		{"debug.idle_timeout", dc.IdleTimeout, &cfg.IdleTimeout},
	} {
		*f.dst, err = config.ParseDurationField(f.path, f.raw)
		if err != nil {
			return debug.Config{}, err
		}
	}
	return cfg, nil
}

func buildWatchdogConfig(wc config.WatchdogConfig) (watchdog.Config, error) {
	period, err := config.ParseDurationOrDefault("watchdog.period", wc.Period, 30*time.Second)
	if err != nil {
		return watchdog.Config{}, err
	}
	checkTimeout, err := config.ParseDurationOrDefault("watchdog.check_timeout", wc.CheckTimeout, 10*time.Second)
	if err != nil {
		return watchdog.Config{}, err
	}
	task := wc.Task
	if task == "" {
		task = defaultTaskName
	}
	return watchdog.Config{
		Task:         task,
		Period:       period,
		CheckTimeout: checkTimeout,
	}, nil
}
