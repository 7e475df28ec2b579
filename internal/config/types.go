package config

type Config struct {
	Notifier NotifierConfig `json:"notifier"`
	Backend  BackendConfig  `json:"backend"`
	Logging  LoggingConfig  `json:"logging"`

	Storage *StorageConfig `json:"storage,omitempty"`

	// Schedules are cron-driven notifications the daemon sends on its own.
	Schedules []ScheduleConfig `json:"schedules,omitempty"`

	// Spool watches a directory for notification files dropped by other
	// processes. Each file is parsed, sent, and removed.
	Spool *SpoolConfig `json:"spool,omitempty"`
}

// NotifierConfig controls the notification cache and dispatch pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type NotifierConfig struct {
	// AppName is shown by backends that support a sender name.
	// Defaults to "App" when empty.
	AppName string `json:"app_name"`

	// Limit bounds how many delivered notifications are remembered.
	// 0 means unbounded.
	Limit int `json:"limit"`

	// RatePerSec throttles daemon-originated sends (schedules, spool).
	// 0 disables throttling.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// BackendConfig selects the delivery backend.
//
// Drivers: "auto" (default), "freedesktop", "beeep", "telegram", "noop".
type BackendConfig struct {
	Driver   string          `json:"driver"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
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

// StorageConfig controls the optional delivery history store.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./desknotify_history" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ScheduleConfig is one cron-driven notification.
type ScheduleConfig struct {
	Name string `json:"name"`
	// Cron is a standard 5-field cron spec (e.g. "0 9 * * 1-5").
	Cron    string `json:"cron"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Urgency string `json:"urgency,omitempty"`
	Thread  string `json:"thread,omitempty"`
	Sound   bool   `json:"sound,omitempty"`
}

type SpoolConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}
