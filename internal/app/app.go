package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"desknotify/internal/backends"
	"desknotify/internal/config"
	"desknotify/internal/eventbus"
	"desknotify/internal/storage"
	logx "desknotify/pkg/logx"
	"desknotify/pkg/notify"
)

// App wires config, logging, the delivery backend, the notifier and the
// optional daemon features (schedules, spool, history) together.
type App struct {
	cfgPath string
	cfgm    *config.Manager

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	backend  notify.Backend
	notifier *notify.Notifier

	// limiter throttles daemon-originated sends (schedules, spool).
	limiter *rate.Limiter

	sched *scheduleRunner
	spool *spoolWatcher

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	backend, err := backends.New(mapBackendConfig(cfg), cfg.Notifier.AppName,
		log.With(logx.String("comp", "backend")))
	if err != nil {
		return nil, err
	}

	nf := notify.NewNotifier(notify.Config{
		AppName: cfg.Notifier.AppName,
		Limit:   cfg.Notifier.Limit,
	}, backend, log.With(logx.String("comp", "notify")), bus)

	a := &App{
		cfgPath:  cfgPath,
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		backend:  backend,
		notifier: nf,
		limiter:  newSendLimiter(cfg.Notifier.RatePerSec),
	}
	a.sched = newScheduleRunner(a, cfg.Schedules)
	if cfg.Spool != nil && cfg.Spool.Enabled {
		a.spool = newSpoolWatcher(a, cfg.Spool.Dir)
	}
	return a, nil
}

// Notifier exposes the notifier for one-shot command modes.
func (a *App) Notifier() *notify.Notifier { return a.notifier }

func (a *App) Store() storage.Store { return a.store }

func newSendLimiter(perSec int) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSec), perSec)
}

func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.notifier.Start(runCtx); err != nil {
		a.log.Warn("backend event stream unavailable", logx.Any("err", err))
	}

	if a.store != nil {
		events, unsub := a.bus.Subscribe(128)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			defer unsub()
			a.persistHistory(runCtx, events)
		}()
	}

	if err := a.sched.start(runCtx); err != nil {
		cancel()
		a.cancel = nil
		return err
	}
	if a.spool != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.spool.run(runCtx)
		}()
	}

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(runCtx, sub)
	}()

	a.log.Info("app started")
	return nil
}

// reloadLoop applies hot config updates. Logging and the send limiter apply
// live; backend and storage changes need a restart.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			sections, attrs := config.SummarizeChange(lastApplied, newCfg)
			lastApplied = newCfg
			if len(sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				continue
			}

			a.logs.Apply(logx.Config{
				Level:   newCfg.Logging.Level,
				Console: newCfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: newCfg.Logging.File.Enabled,
					Path:    newCfg.Logging.File.Path,
				},
			})
			a.limiter.SetLimit(limitFor(newCfg.Notifier.RatePerSec))

			for _, s := range sections {
				switch s {
				case "backend", "storage":
					a.log.Warn("config section changed; restart required",
						logx.String("section", s))
				case "schedules":
					a.sched.apply(ctx, newCfg.Schedules)
				}
			}

			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
		}
	}
}

func limitFor(perSec int) rate.Limit {
	if perSec <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSec)
}

// send delivers a daemon-originated notification through the rate limiter.
func (a *App) send(ctx context.Context, n *notify.Notification) {
	if err := a.limiter.Wait(ctx); err != nil {
		return
	}
	if err := a.notifier.Send(ctx, n); err != nil {
		a.log.Warn("send failed", logx.String("title", n.Title), logx.Any("err", err))
	}
}

// persistHistory maps lifecycle bus events to storage entries.
func (a *App) persistHistory(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			entry, keep := historyEntry(e)
			if !keep {
				continue
			}
			wctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := a.store.AppendHistory(wctx, entry); err != nil {
				a.log.Debug("history append failed", logx.Any("err", err))
			}
			cancel()
		}
	}
}

func historyEntry(e eventbus.Event) (storage.HistoryEntry, bool) {
	var event string
	switch e.Type {
	case "notify.delivered":
		event = "delivered"
	case "notify.dismissed":
		event = "dismissed"
	case "notify.failed":
		event = "failed"
	default:
		return storage.HistoryEntry{}, false
	}
	rec, ok := e.Data.(notify.EventRecord)
	if !ok {
		return storage.HistoryEntry{}, false
	}
	return storage.HistoryEntry{
		At:         rec.At,
		Event:      event,
		Identifier: rec.Identifier,
		Title:      rec.Title,
		Urgency:    string(rec.Urgency),
		Thread:     rec.Thread,
		Reason:     rec.Reason,
		Error:      rec.Error,
	}, true
}

func (a *App) Stop(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.cancel == nil {
		return nil
	}
	a.log.Info("stopping")

	a.sched.stop()
	a.cancel()
	a.cancel = nil

	stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	_ = a.notifier.Stop(stopCtx)
	cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown wait interrupted", logx.Any("err", ctx.Err()))
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Any("err", err))
		}
	}

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
