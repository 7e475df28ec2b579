package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"desknotify/internal/config"
	logx "desknotify/pkg/logx"
	"desknotify/pkg/notify"
)

// scheduleRunner fires configured notifications on cron specs.
// apply() swaps the whole cron instance so removed entries stop firing.
type scheduleRunner struct {
	app *App

	mu      sync.Mutex
	cron    *cron.Cron
	entries []config.ScheduleConfig
}

func newScheduleRunner(a *App, entries []config.ScheduleConfig) *scheduleRunner {
	return &scheduleRunner{app: a, entries: entries}
}

func (r *scheduleRunner) start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(ctx)
}

func (r *scheduleRunner) startLocked(ctx context.Context) error {
	if len(r.entries) == 0 {
		return nil
	}
	c := cron.New()
	for i, s := range r.entries {
		s := s
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("schedule[%d]", i)
		}
		if _, err := c.AddFunc(s.Cron, func() { r.fire(ctx, s) }); err != nil {
			return fmt.Errorf("%s: invalid cron spec %q: %w", name, s.Cron, err)
		}
	}
	c.Start()
	r.cron = c
	r.app.log.Info("schedules started", logx.Int("count", len(r.entries)))
	return nil
}

func (r *scheduleRunner) fire(ctx context.Context, s config.ScheduleConfig) {
	if ctx.Err() != nil {
		return
	}
	n := notify.New(s.Title, s.Message)
	if s.Urgency != "" {
		n.Urgency = notify.Urgency(s.Urgency)
	}
	n.Thread = s.Thread
	if s.Sound {
		n.SoundFile = notify.DefaultSound
	}
	r.app.send(ctx, n)
}

// apply replaces the schedule set on config reload.
func (r *scheduleRunner) apply(ctx context.Context, entries []config.ScheduleConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	r.entries = entries
	if err := r.startLocked(ctx); err != nil {
		r.app.log.Warn("schedules not applied", logx.Any("err", err))
	}
}

func (r *scheduleRunner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *scheduleRunner) stopLocked() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
}
