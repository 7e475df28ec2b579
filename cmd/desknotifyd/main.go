package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/dustin/go-humanize"

	"desknotify/internal/app"
	"desknotify/pkg/notify"
)

func defaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "desknotify", "config.yaml")
}

func main() {
	var (
		cfgPath string

		sendTitle   string
		sendMessage string
		sendUrgency string
		sendSound   bool

		historyN int
	)
	flag.StringVar(&cfgPath, "config", defaultConfigPath(), "path to config file (yaml or json)")
	flag.StringVar(&sendTitle, "send", "", "one-shot mode: send a notification with this title and exit")
	flag.StringVar(&sendMessage, "message", "", "message body for -send")
	flag.StringVar(&sendUrgency, "urgency", "", "urgency for -send: critical, normal or low")
	flag.BoolVar(&sendSound, "sound", false, "play the default sound for -send")
	flag.IntVar(&historyN, "history", 0, "print the N most recent history entries and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	switch {
	case historyN > 0:
		if err := printHistory(ctx, a, historyN); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
	case strings.TrimSpace(sendTitle) != "":
		if err := sendOnce(ctx, a, sendTitle, sendMessage, sendUrgency, sendSound); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
	default:
		if err := a.Start(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "fatal start:", err)
			os.Exit(1)
		}
		_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

		<-ctx.Done()
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = a.Stop(stopCtx)
		stopCancel()
	}
}

func sendOnce(ctx context.Context, a *app.App, title, message, urgency string, sound bool) error {
	n := notify.New(title, message)
	if urgency != "" {
		n.Urgency = notify.Urgency(urgency)
	}
	if sound {
		n.SoundFile = notify.DefaultSound
	}
	if err := a.Notifier().Send(ctx, n); err != nil {
		return err
	}
	fmt.Println(n.Identifier())
	return nil
}

func printHistory(ctx context.Context, a *app.App, limit int) error {
	st := a.Store()
	if st == nil {
		return fmt.Errorf("history requires a storage section in the config")
	}
	entries, err := st.RecentHistory(ctx, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-10s %s", humanize.Time(e.At), e.Event, e.Title)
		if e.Reason != "" {
			line += " (" + e.Reason + ")"
		}
		if e.Error != "" {
			line += " error: " + e.Error
		}
		fmt.Println(line)
	}
	return nil
}
