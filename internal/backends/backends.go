// Package backends provides the per-platform notify.Backend
// implementations and host-OS selection.
//
// Selection happens once at process startup: the freedesktop D-Bus backend
// on Linux when a session bus is reachable, the beeep backend elsewhere (or
// as a Linux fallback), a Telegram remote backend for headless machines
// that should notify an operator chat instead, and a noop backend for CI.
package backends

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"desknotify/pkg/logx"
	"desknotify/pkg/notify"
)

// Config selects and configures a backend.
//
// Driver values:
//   - "auto": freedesktop when a session bus is reachable, else beeep
//   - "freedesktop": Linux D-Bus notification server (fails elsewhere)
//   - "beeep": portable fire-and-forget notifications
//   - "telegram": deliver to an operator chat instead of the desktop
//   - "noop": discard everything (CI / headless tests)
type Config struct {
	Driver   string
	Telegram TelegramConfig
}

// TelegramConfig configures the telegram driver.
type TelegramConfig struct {
	Token       string
	ChatID      int64
	PollTimeout time.Duration
}

// New builds the configured backend. appName identifies the application in
// the platform notification center.
func New(cfg Config, appName string, log logx.Logger) (notify.Backend, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "auto":
		b, err := newFreedesktop(appName, log)
		if err == nil {
			return b, nil
		}
		log.Debug("freedesktop backend unavailable, falling back to beeep", logx.Err(err))
		return newBeeep(appName, log), nil
	case "freedesktop", "dbus":
		return newFreedesktop(appName, log)
	case "beeep":
		return newBeeep(appName, log), nil
	case "telegram":
		if strings.TrimSpace(cfg.Telegram.Token) == "" {
			return nil, errors.New("telegram backend requires a token")
		}
		if cfg.Telegram.ChatID == 0 {
			return nil, errors.New("telegram backend requires a chat id")
		}
		return newTelegram(cfg.Telegram, appName, log)
	case "noop", "none":
		return newNoop(), nil
	default:
		return nil, fmt.Errorf("unknown backend driver: %q", cfg.Driver)
	}
}
