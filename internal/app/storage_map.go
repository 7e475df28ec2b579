package app

import (
	"fmt"
	"strings"
	"time"

	"desknotify/internal/backends"
	"desknotify/internal/config"
	"desknotify/internal/storage"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapBackendConfig(cfg *config.Config) backends.Config {
	out := backends.Config{Driver: strings.TrimSpace(cfg.Backend.Driver)}
	if tg := cfg.Backend.Telegram; tg != nil {
		pollTimeout, err := config.ParseDurationOrDefault("backend.telegram.poll_timeout", tg.PollTimeout, 10*time.Second)
		if err != nil {
			pollTimeout = 10 * time.Second
		}
		out.Telegram = backends.TelegramConfig{
			Token:       tg.Token,
			ChatID:      tg.ChatID,
			PollTimeout: pollTimeout,
		}
	}
	return out
}
