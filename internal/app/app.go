// Package app wires the clipwatch daemon together: config, logging, storage,
// the monitor engine, the sink pipeline, and the watchdog, all hosted under
// one supervisor.
package app

import (
	"context"
	"fmt"
	"time"

	"clipwatch/internal/clipboard"
	"clipwatch/internal/config"
	"clipwatch/internal/eventbus"
	"clipwatch/internal/history"
	"clipwatch/internal/monitor"
	"clipwatch/internal/observability/debug"
	"clipwatch/internal/runtime/supervisor"
	"clipwatch/internal/sink"
	"clipwatch/internal/storage"
	"clipwatch/internal/watchdog"
	logx "clipwatch/pkg/logx"
)

type App struct {
	cfgPath string
	cfgm    *config.Manager

	logs *logx.Service
	log  logx.Logger

	bus   eventbus.Bus
	store storage.Store
	ring  *history.Ring
	disp  *sink.Dispatcher

	engine *monitor.Engine

	procReg *watchdog.ProcessRegistry
	sysReg  *watchdog.SystemdRegistry
	wd      *watchdog.Watchdog

	dbg *debug.Server

	// localEngine is false when the watchdog supervises an external unit
	// (systemd/systemctl registries); the engine then runs in that unit, not
	// in this process.
	localEngine bool

	sup   *supervisor.Supervisor
	cfgCh chan *config.Config
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogging(cfg.Logging))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(logs.Logger().With(logx.String("comp", "config")))
	cfgm.SetValidator(func(_ context.Context, c *config.Config) error { return c.Validate() })

	bus := eventbus.New()

	store, err := storage.Open(mapStorage(cfg.Storage), logs.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	ring := history.NewRing(cfg.History.Capacity)
	sinks := []sink.Sink{sink.NewHistorySink(ring)}
	if cfg.Sinks.Log.IsEnabled() {
		sinks = append(sinks, sink.NewLogSink(
			logs.Logger().With(logx.String("comp", "sink")),
			cfg.Sinks.Log.RatePerSec,
			cfg.Sinks.Log.PreviewLength,
		))
	}
	disp := sink.NewDispatcher(cfg.Sinks.QueueSize, logs.Logger().With(logx.String("comp", "sink")), sinks...)

	mcfg, err := buildMonitorConfig(cfg.Monitor)
	if err != nil {
		logs.Close()
		_ = store.Close()
		return nil, err
	}
	src := clipboard.NewSystem(logs.Logger().With(logx.String("comp", "clipboard")))
	engine := monitor.NewEngine(mcfg, src, disp,
		monitor.WithLogger(logs.Logger().With(logx.String("comp", "engine"))),
		monitor.WithBus(bus),
	)

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		logs:    logs,
		log:     log,
		bus:     bus,
		store:   store,
		ring:    ring,
		disp:    disp,
		engine:  engine,
	}

	wcfg, err := buildWatchdogConfig(cfg.Watchdog)
	if err != nil {
		logs.Close()
		_ = store.Close()
		return nil, err
	}

	// Registry selection: in process mode the engine is hosted by this
	// binary and liveness is tracked by the in-process task table. With the
	// systemd/systemctl registries this binary acts as a pure watchdog over
	// an external unit (named by watchdog.task); the engine is not started
	// locally.
	a.procReg = watchdog.NewProcessRegistry(logs.Logger().With(logx.String("comp", "registry")))
	a.procReg.Define(wcfg.Task, engine.Run)
	a.localEngine = true
	var reg watchdog.Registry = a.procReg
	switch cfg.Watchdog.Registry {
	case "systemd":
		sysReg, err := watchdog.NewSystemdRegistry(context.Background())
		if err != nil {
			logs.Close()
			_ = store.Close()
			return nil, fmt.Errorf("systemd registry: %w", err)
		}
		a.sysReg = sysReg
		reg = sysReg
		a.localEngine = false
	case "systemctl":
		reg = watchdog.NewSystemctlRegistry()
		a.localEngine = false
	}

	if cfg.Watchdog.IsEnabled() {
		a.wd = watchdog.New(wcfg, reg,
			watchdog.WithLogger(logs.Logger().With(logx.String("comp", "watchdog"))),
			watchdog.WithBus(bus),
		)
	}

	if cfg.Debug.Enabled {
		dcfg, err := buildDebugConfig(cfg.Debug)
		if err != nil {
			logs.Close()
			_ = store.Close()
			return nil, err
		}
		a.dbg = debug.New(dcfg, logs.Logger().With(logx.String("comp", "debug")), a.statusz)
	}

	return a, nil
}

// statusz builds the debug status payload. Clipboard content never appears
// here; only lengths and counters.
func (a *App) statusz() any {
	st := a.engine.StateNow()
	out := map[string]any{
		"engine": map[string]any{
			"mode":                  st.Mode.String(),
			"ticks":                 st.Ticks,
			"emitted":               st.Emitted,
			"consecutive_no_change": st.ConsecutiveNoChange,
			"consecutive_errors":    st.ConsecutiveErrors,
			"last_tick_at":          st.LastTickAt,
			"last_present":          st.Last.Present,
			"last_length":           st.Last.Len(),
			"local":                 a.localEngine,
		},
		"history": map[string]any{
			"retained": a.ring.Len(),
		},
		"sinks": map[string]any{
			"dropped": a.disp.Dropped(),
		},
	}
	if a.wd != nil {
		rec := a.wd.Snapshot()
		out["watchdog"] = map[string]any{
			"last_check_at":   rec.LastCheckAt,
			"target_alive":    rec.TargetAlive,
			"checks":          rec.Checks,
			"restarts":        rec.Restarts,
			"last_restart_at": rec.LastRestartAt,
			"last_err":        rec.LastErr,
		}
	}
	if a.sup != nil {
		out["tasks"] = a.sup.SnapshotNow()
	}
	return out
}

// History exposes the recent-change buffer (observability).
func (a *App) History() *history.Ring { return a.ring }

// EngineState returns a copy of the engine's current state.
func (a *App) EngineState() monitor.State { return a.engine.StateNow() }

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))
	a.procReg.SetSpawner(a.sup.Go)

	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("sink.dispatch", a.disp.Run)
	a.sup.Go("storage.audit", func(ctx context.Context) error {
		rec := storage.NewRecorder(a.store, a.logs.Logger().With(logx.String("comp", "audit")))
		return rec.Run(ctx, a.bus)
	})

	cfg := a.cfgm.Get()

	// Local engine host (process mode). The watchdog restarts it if it ever
	// exits; the supervisor only provides panic capture and shutdown.
	if a.localEngine {
		task := cfg.Watchdog.Task
		if task == "" {
			task = defaultTaskName
		}
		if err := a.procReg.Start(ctx, task); err != nil {
			return fmt.Errorf("start engine: %w", err)
		}
	}

	// The watchdog itself is restored by the supervisor (one level of
	// supervision only; no recursive watchdogs).
	if a.wd != nil {
		a.sup.GoRestart("watchdog", a.wd.Run, supervisor.WithStopOnCleanExit(true))
	}

	if a.dbg != nil {
		a.sup.GoRestart("debug.http", a.dbg.Run,
			supervisor.WithRestartBackoff(500*time.Millisecond, 10*time.Second))
	}

	// Hot reload: re-apply tunables when the config file changes.
	a.cfgCh = a.cfgm.Subscribe(4)
	ch := a.cfgCh
	a.sup.Go0("config.apply", func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-ch:
				if !ok {
					return
				}
				a.applyConfig(c)
			}
		}
	})

	a.log.Info("clipwatch started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) applyConfig(c *config.Config) {
	if c == nil {
		return
	}
	a.logs.Apply(mapLogging(c.Logging))

	mcfg, err := buildMonitorConfig(c.Monitor)
	if err != nil {
		// Should not happen: the manager validates before publishing.
		a.log.Warn("config apply failed", logx.Err(err))
		return
	}
	a.engine.Apply(mcfg)
	a.engine.Nudge()
	a.log.Info("config applied")
	// Watchdog period/registry and the storage driver are fixed at startup;
	// changing them requires a restart.
}

func (a *App) Stop(ctx context.Context) error {
	if a.cfgCh != nil {
		a.cfgm.Unsubscribe(a.cfgCh)
		a.cfgCh = nil
	}
	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	if a.sysReg != nil {
		a.sysReg.Close()
	}
	_ = a.store.Close()
	a.log.Info("clipwatch stopped")
	_ = a.logs.Close()
	return err
}
