package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	yaml "go.yaml.in/yaml/v3"

	logx "desknotify/pkg/logx"
	"desknotify/pkg/notify"
)

// spoolWatcher picks up notification files dropped into a directory by other
// processes. Each file is parsed, sent, and removed. Files that fail to parse
// are renamed to <name>.rejected so they don't loop forever.
type spoolWatcher struct {
	app *App
	dir string
	log logx.Logger
}

// spoolFile is the on-disk shape, YAML or JSON.
type spoolFile struct {
	Title   string `yaml:"title" json:"title"`
	Message string `yaml:"message" json:"message"`
	Urgency string `yaml:"urgency,omitempty" json:"urgency,omitempty"`
	Icon    string `yaml:"icon,omitempty" json:"icon,omitempty"`
	Thread  string `yaml:"thread,omitempty" json:"thread,omitempty"`
	Sound   bool   `yaml:"sound,omitempty" json:"sound,omitempty"`
	Timeout int    `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

func newSpoolWatcher(a *App, dir string) *spoolWatcher {
	return &spoolWatcher{
		app: a,
		dir: dir,
		log: a.log.With(logx.String("comp", "spool")),
	}
}

func (w *spoolWatcher) run(ctx context.Context) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.log.Warn("spool dir unavailable", logx.String("dir", w.dir), logx.Any("err", err))
		return
	}

	// Drain files that were dropped while the daemon was down.
	w.sweep(ctx)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("spool watch init failed", logx.Any("err", err))
		return
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		w.log.Warn("spool watch add failed", logx.String("dir", w.dir), logx.Any("err", err))
		return
	}
	w.log.Info("spool watching", logx.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !spoolCandidate(ev.Name) {
				continue
			}
			// Small delay so writers finish before we read.
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			w.process(ctx, ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.log.Warn("spool watch error", logx.Any("err", err))
			}
		}
	}
}

func spoolCandidate(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func (w *spoolWatcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn("spool sweep failed", logx.Any("err", err))
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if e.IsDir() || !spoolCandidate(e.Name()) {
			continue
		}
		w.process(ctx, filepath.Join(w.dir, e.Name()))
	}
}

func (w *spoolWatcher) process(ctx context.Context, path string) {
	n, err := parseSpoolFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		w.log.Warn("spool file rejected", logx.String("file", filepath.Base(path)), logx.Any("err", err))
		_ = os.Rename(path, path+".rejected")
		return
	}
	w.app.send(ctx, n)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		w.log.Warn("spool remove failed", logx.String("file", filepath.Base(path)), logx.Any("err", err))
	}
}

func parseSpoolFile(path string) (*notify.Notification, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f spoolFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	n := notify.New(f.Title, f.Message)
	if f.Urgency != "" {
		n.Urgency = notify.Urgency(f.Urgency)
	}
	n.Icon = f.Icon
	n.Thread = f.Thread
	if f.Sound {
		n.SoundFile = notify.DefaultSound
	}
	if f.Timeout > 0 {
		n.Timeout = f.Timeout
	}
	return n, nil
}
