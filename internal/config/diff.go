package config

import (
	"reflect"
	"sort"
	"strings"

	logx "desknotify/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (telegram token) are never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.String("notifier.app_name", newCfg.Notifier.AppName),
			logx.Int("notifier.limit", newCfg.Notifier.Limit),
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
		)
	}

	// Backend (never log token)
	oldTg, newTg := oldCfg.Backend.Telegram, newCfg.Backend.Telegram
	backendChanged := strings.TrimSpace(oldCfg.Backend.Driver) != strings.TrimSpace(newCfg.Backend.Driver) ||
		(oldTg == nil) != (newTg == nil)
	if !backendChanged && oldTg != nil && newTg != nil {
		backendChanged = oldTg.ChatID != newTg.ChatID ||
			strings.TrimSpace(oldTg.PollTimeout) != strings.TrimSpace(newTg.PollTimeout) ||
			(strings.TrimSpace(oldTg.Token) != "") != (strings.TrimSpace(newTg.Token) != "")
	}
	if backendChanged {
		changed = append(changed, "backend")
		attrs = append(attrs, logx.String("backend.driver", strings.TrimSpace(newCfg.Backend.Driver)))
		if newTg != nil {
			attrs = append(attrs,
				logx.Int64("backend.telegram.chat_id", newTg.ChatID),
				logx.Bool("backend.telegram.token_set", strings.TrimSpace(newTg.Token) != ""),
			)
		}
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Storage. Nil means disabled.
	oldS, newS := oldCfg.Storage, newCfg.Storage
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if oldS != nil {
		oDriver = strings.TrimSpace(oldS.Driver)
		oBusy = strings.TrimSpace(oldS.BusyTimeout)
		oPathSet = strings.TrimSpace(oldS.Path) != ""
	}
	if newS != nil {
		nDriver = strings.TrimSpace(newS.Driver)
		nBusy = strings.TrimSpace(newS.BusyTimeout)
		nPathSet = strings.TrimSpace(newS.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
		)
	}

	if !reflect.DeepEqual(oldCfg.Schedules, newCfg.Schedules) {
		changed = append(changed, "schedules")
		attrs = append(attrs, logx.Int("schedules.count", len(newCfg.Schedules)))
	}

	if !reflect.DeepEqual(oldCfg.Spool, newCfg.Spool) {
		changed = append(changed, "spool")
		spoolEnabled := newCfg.Spool != nil && newCfg.Spool.Enabled
		attrs = append(attrs, logx.Bool("spool.enabled", spoolEnabled))
	}

	sort.Strings(changed)
	return changed, attrs
}
