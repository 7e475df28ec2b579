package backends

import (
	"context"
	"strconv"
	"sync/atomic"

	"desknotify/pkg/notify"
)

// noopBackend accepts everything and displays nothing. Used in CI and
// headless sessions where initializing a real notification center is
// pointless (or, on some platforms, actively harmful).
type noopBackend struct {
	seq atomic.Uint64
}

func newNoop() notify.Backend { return &noopBackend{} }

func (b *noopBackend) Deliver(_ context.Context, _ *notify.Notification, _ *notify.Notification) (string, error) {
	return "noop-" + strconv.FormatUint(b.seq.Add(1), 10), nil
}

func (b *noopBackend) Dismiss(context.Context, *notify.Notification) error { return nil }
func (b *noopBackend) DismissAll(context.Context) error                    { return nil }

// Everything is "supported" because nothing can fail.
func (b *noopBackend) Capabilities(context.Context) (notify.CapabilitySet, error) {
	return notify.NewCapabilitySet(
		notify.CapAppName, notify.CapTitle, notify.CapMessage, notify.CapUrgency,
		notify.CapIcon, notify.CapIconFile, notify.CapIconName,
		notify.CapButtons, notify.CapReplyField, notify.CapAttachment,
		notify.CapOnClicked, notify.CapOnDismissed,
		notify.CapSound, notify.CapSoundFile, notify.CapSoundName,
		notify.CapThread, notify.CapTimeout,
	), nil
}

func (b *noopBackend) HasAuthorisation(context.Context) (bool, error)     { return true, nil }
func (b *noopBackend) RequestAuthorisation(context.Context) (bool, error) { return true, nil }
