package app

import (
	"testing"
	"time"

	"clipwatch/internal/config"
)

func TestBuildMonitorConfig(t *testing.T) {
	t.Parallel()
	mc := config.MonitorConfig{
		Intervals: config.IntervalsConfig{
			UltraFast: "50ms",
			Fast:      "150ms",
			Normal:    "400ms",
			Slow:      "2s",
		},
		Downgrade: config.DowngradeConfig{FastAfter: 10, NormalAfter: 30, SlowAfter: 60},

		MinChangeLength:     3,
		SimilarityThreshold: 0.85,
		MaxContentLength:    1000,

		ReadTimeout:      "300ms",
		MaxReadErrors:    7,
		ErrorRetryDelay:  "1s",
		ErrorBackoffBase: "1s",
		ErrorBackoffMax:  "10s",
	}

	cfg, err := buildMonitorConfig(mc)
	if err != nil {
		t.Fatalf("buildMonitorConfig: %v", err)
	}
	if cfg.Policy.UltraFastEvery != 50*time.Millisecond || cfg.Policy.SlowEvery != 2*time.Second {
		t.Fatalf("policy intervals = %+v", cfg.Policy)
	}
	if cfg.Policy.FastAfter != 10 || cfg.Policy.SlowAfter != 60 {
		t.Fatalf("policy thresholds = %+v", cfg.Policy)
	}
	if cfg.Classifier.MinChangeLength != 3 || cfg.Classifier.SimilarityThreshold != 0.85 {
		t.Fatalf("classifier = %+v", cfg.Classifier)
	}
	if cfg.ReadTimeout != 300*time.Millisecond || cfg.MaxReadErrors != 7 {
		t.Fatalf("read policy = %+v", cfg)
	}
	if cfg.ErrorBackoffMax != 10*time.Second {
		t.Fatalf("ErrorBackoffMax = %v", cfg.ErrorBackoffMax)
	}
}

func TestBuildMonitorConfigEmptyUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := buildMonitorConfig(config.MonitorConfig{})
	if err != nil {
		t.Fatalf("buildMonitorConfig: %v", err)
	}
	// Zero values fall through to the engine's own defaults.
	if cfg.ReadTimeout != 0 || cfg.MaxContentLength != 0 {
		t.Fatalf("empty config should stay zero: %+v", cfg)
	}
}

func TestBuildMonitorConfigRejectsBadPolicy(t *testing.T) {
	t.Parallel()
	mc := config.MonitorConfig{
		Intervals: config.IntervalsConfig{UltraFast: "2s", Fast: "100ms", Normal: "500ms", Slow: "1500ms"},
	}
	if _, err := buildMonitorConfig(mc); err == nil {
		t.Fatal("expected error for decreasing intervals")
	}
}

func TestBuildWatchdogConfigDefaults(t *testing.T) {
	t.Parallel()
	wc, err := buildWatchdogConfig(config.WatchdogConfig{})
	if err != nil {
		t.Fatalf("buildWatchdogConfig: %v", err)
	}
	if wc.Task != defaultTaskName {
		t.Fatalf("task = %q, want %q", wc.Task, defaultTaskName)
	}
	if wc.Period != 30*time.Second || wc.CheckTimeout != 10*time.Second {
		t.Fatalf("timings = %+v", wc)
	}
}

func TestBuildWatchdogConfigOverrides(t *testing.T) {
	t.Parallel()
	wc, err := buildWatchdogConfig(config.WatchdogConfig{Task: "external.service", Period: "1m"})
	if err != nil {
		t.Fatalf("buildWatchdogConfig: %v", err)
	}
	if wc.Task != "external.service" || wc.Period != time.Minute {
		t.Fatalf("config = %+v", wc)
	}
}
