package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAMLAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
notifier:
  limit: 5
backend:
  driver: noop
logging:
  level: ""
  console: true
  file:
    enabled: false
    path: ""
`)
	m := NewManager(path)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Notifier.AppName != "App" {
		t.Fatalf("app_name default = %q, want App", cfg.Notifier.AppName)
	}
	if cfg.Notifier.Limit != 5 {
		t.Fatalf("limit = %d, want 5", cfg.Notifier.Limit)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("logging level default = %q, want info", cfg.Logging.Level)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.json", `{"notifier":{"app_name":"x","limit":0},"backend":{"driver":"noop"},"logging":{"level":"info","console":true,"file":{"enabled":false,"path":""}},"bogus":1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"negative limit", Config{Notifier: NotifierConfig{Limit: -1}}},
		{"negative rate", Config{Notifier: NotifierConfig{RatePerSec: -2}}},
		{"unknown driver", Config{Backend: BackendConfig{Driver: "carrier-pigeon"}}},
		{"telegram missing section", Config{Backend: BackendConfig{Driver: "telegram"}}},
		{"telegram missing token", Config{Backend: BackendConfig{Driver: "telegram", Telegram: &TelegramConfig{ChatID: 1}}}},
		{"schedule missing cron", Config{Schedules: []ScheduleConfig{{Title: "x"}}}},
		{"schedule missing title", Config{Schedules: []ScheduleConfig{{Cron: "* * * * *"}}}},
		{"spool missing dir", Config{Spool: &SpoolConfig{Enabled: true}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadCommitSkipsUnchangedHash(t *testing.T) {
	path := writeConfig(t, "config.json", `{"notifier":{"app_name":"demo","limit":2},"backend":{"driver":"noop"},"logging":{"level":"debug","console":false,"file":{"enabled":false,"path":""}}}`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
	if m.lastHash == 0 {
		t.Fatal("lastHash not set after commit")
	}
	if h := hashConfig(cfg); h != m.lastHash {
		t.Fatalf("hashConfig mismatch: %x vs %x", h, m.lastHash)
	}
}

func TestSubscribePublishDropsOldest(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	first := &Config{Notifier: NotifierConfig{AppName: "one"}}
	second := &Config{Notifier: NotifierConfig{AppName: "two"}}
	m.publish(first)
	m.publish(second)

	got := <-ch
	if got.Notifier.AppName != "two" {
		t.Fatalf("expected latest config, got %q", got.Notifier.AppName)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	// second call is a no-op
	m.Unsubscribe(ch)
}

func TestSummarizeChange(t *testing.T) {
	oldCfg := &Config{
		Notifier: NotifierConfig{AppName: "demo", Limit: 2},
		Backend:  BackendConfig{Driver: "noop"},
		Logging:  LoggingConfig{Level: "info", Console: true},
	}
	newCfg := &Config{
		Notifier: NotifierConfig{AppName: "demo", Limit: 10},
		Backend:  BackendConfig{Driver: "beeep"},
		Logging:  LoggingConfig{Level: "info", Console: true},
		Spool:    &SpoolConfig{Enabled: true, Dir: "/tmp/spool"},
	}
	changed, _ := SummarizeChange(oldCfg, newCfg)
	want := map[string]bool{"notifier": true, "backend": true, "spool": true}
	if len(changed) != len(want) {
		t.Fatalf("changed = %v", changed)
	}
	for _, s := range changed {
		if !want[s] {
			t.Fatalf("unexpected section %q in %v", s, changed)
		}
	}
}
