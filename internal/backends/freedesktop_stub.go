//go:build !linux

package backends

import (
	"errors"

	"desknotify/pkg/logx"
	"desknotify/pkg/notify"
)

func newFreedesktop(appName string, log logx.Logger) (notify.Backend, error) {
	_ = appName
	_ = log
	return nil, errors.New("freedesktop backend is only available on linux")
}
