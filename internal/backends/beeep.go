package backends

import (
	"context"

	"github.com/gen2brain/beeep"
	"github.com/google/uuid"

	"desknotify/pkg/logx"
	"desknotify/pkg/notify"
)

// beeepBackend is the portable fallback: fire-and-forget toasts via
// gen2brain/beeep. The platform gives us no handle back, so identifiers
// are locally generated and Dismiss has nothing to close.
type beeepBackend struct {
	appName string
	log     logx.Logger
}

func newBeeep(appName string, log logx.Logger) notify.Backend {
	return &beeepBackend{
		appName: appName,
		log:     log.With(logx.String("backend", "beeep")),
	}
}

func (b *beeepBackend) Deliver(_ context.Context, n *notify.Notification, replaces *notify.Notification) (string, error) {
	// No slot reuse here: the old toast cannot be replaced, it just ages out.
	if replaces != nil {
		b.log.Debug("cannot replace notification, platform keeps no handle",
			logx.String("evicted", replaces.Identifier()))
	}

	var err error
	if n.Urgency == notify.UrgencyCritical {
		err = beeep.Alert(n.Title, n.Message, n.Icon)
	} else {
		err = beeep.Notify(n.Title, n.Message, n.Icon)
	}
	if err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

// Dismiss is accepted but cannot reach the displayed toast; the platform
// owns its lifetime. The core still unlinks the notification locally.
func (b *beeepBackend) Dismiss(context.Context, *notify.Notification) error { return nil }

func (b *beeepBackend) DismissAll(context.Context) error { return nil }

func (b *beeepBackend) Capabilities(context.Context) (notify.CapabilitySet, error) {
	return notify.NewCapabilitySet(
		notify.CapTitle,
		notify.CapMessage,
		notify.CapIcon,
		notify.CapIconFile,
		notify.CapUrgency,
	), nil
}

func (b *beeepBackend) HasAuthorisation(context.Context) (bool, error)     { return true, nil }
func (b *beeepBackend) RequestAuthorisation(context.Context) (bool, error) { return true, nil }
