//go:build linux

package backends

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/godbus/dbus/v5"

	"desknotify/pkg/logx"
	"desknotify/pkg/notify"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"
)

// Close reasons from the freedesktop notification spec.
const (
	fdoReasonExpired   uint32 = 1
	fdoReasonDismissed uint32 = 2
	fdoReasonClosed    uint32 = 3
)

// Action key for the notification body itself (clicks outside any button).
const defaultActionKey = "default"

// Non-standard action key some servers use for inline replies.
const inlineReplyKey = "inline-reply"

// freedesktop delivers through the org.freedesktop.Notifications D-Bus
// service. Server-assigned uint32 IDs become string identifiers; button
// and click callbacks are driven by the ActionInvoked / NotificationClosed
// / NotificationReplied signals.
type freedesktop struct {
	appName string
	log     logx.Logger
	conn    *dbus.Conn
	obj     dbus.BusObject

	mu   sync.Mutex
	live map[uint32]*notify.Notification

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
	sigCh     chan *dbus.Signal
}

func newFreedesktop(appName string, log logx.Logger) (notify.Backend, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	return &freedesktop{
		appName: appName,
		log:     log.With(logx.String("backend", "freedesktop")),
		conn:    conn,
		obj:     conn.Object(dbusNotifyDest, dbusNotifyPath),
		live:    map[uint32]*notify.Notification{},
	}, nil
}

func (b *freedesktop) Deliver(ctx context.Context, n *notify.Notification, replaces *notify.Notification) (string, error) {
	var replacesID uint32
	if replaces != nil {
		if v, err := strconv.ParseUint(replaces.Identifier(), 10, 32); err == nil {
			replacesID = uint32(v)
		}
	}

	actions := b.buildActions(ctx, n)
	hints := b.buildHints(n)

	// expire_timeout is in milliseconds; anything non-positive means the
	// server default.
	timeout := int32(-1)
	if n.Timeout > 0 {
		timeout = int32(n.Timeout) * 1000
	}

	call := b.obj.CallWithContext(ctx,
		dbusNotifyInterface+".Notify", 0,
		b.appName,  // app_name
		replacesID, // replaces_id
		n.Icon,     // app_icon (path or icon name)
		n.Title,    // summary
		n.Message,  // body
		actions,    // actions (key, label pairs)
		hints,      // hints
		timeout,    // expire_timeout
	)
	if call.Err != nil {
		return "", call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return "", err
	}

	b.mu.Lock()
	if replacesID != 0 {
		delete(b.live, replacesID)
	}
	b.live[id] = n
	b.mu.Unlock()

	return strconv.FormatUint(uint64(id), 10), nil
}

func (b *freedesktop) buildActions(ctx context.Context, n *notify.Notification) []string {
	actions := []string{}
	if n.OnClicked != nil {
		actions = append(actions, defaultActionKey, defaultActionKey)
	}
	for i, btn := range n.Buttons {
		actions = append(actions, strconv.Itoa(i), btn.Title)
	}
	if n.ReplyField != nil && b.serverSupports(ctx, inlineReplyKey) {
		actions = append(actions, inlineReplyKey, n.ReplyField.Title)
	}
	return actions
}

func (b *freedesktop) buildHints(n *notify.Notification) map[string]dbus.Variant {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(urgencyByte(n.Urgency)),
		"desktop-entry": dbus.MakeVariant(b.appName),
	}
	switch {
	case n.SoundFile == notify.DefaultSound:
		hints["sound-name"] = dbus.MakeVariant("message-new-instant")
	case n.SoundFile != "":
		hints["sound-file"] = dbus.MakeVariant(n.SoundFile)
	default:
		hints["suppress-sound"] = dbus.MakeVariant(true)
	}
	if n.Attachment != "" {
		hints["image-path"] = dbus.MakeVariant(n.Attachment)
	}
	return hints
}

func urgencyByte(u notify.Urgency) byte {
	switch u {
	case notify.UrgencyLow:
		return 0
	case notify.UrgencyCritical:
		return 2
	default:
		return 1
	}
}

func (b *freedesktop) serverSupports(ctx context.Context, cap string) bool {
	caps, err := b.serverCapabilities(ctx)
	if err != nil {
		return false
	}
	for _, c := range caps {
		if c == cap {
			return true
		}
	}
	return false
}

func (b *freedesktop) serverCapabilities(ctx context.Context) ([]string, error) {
	call := b.obj.CallWithContext(ctx, dbusNotifyInterface+".GetCapabilities", 0)
	if call.Err != nil {
		return nil, call.Err
	}
	var caps []string
	if err := call.Store(&caps); err != nil {
		return nil, err
	}
	return caps, nil
}

func (b *freedesktop) Dismiss(ctx context.Context, n *notify.Notification) error {
	v, err := strconv.ParseUint(n.Identifier(), 10, 32)
	if err != nil {
		return fmt.Errorf("bad notification identifier %q: %w", n.Identifier(), err)
	}
	id := uint32(v)

	b.mu.Lock()
	delete(b.live, id)
	b.mu.Unlock()

	call := b.obj.CallWithContext(ctx, dbusNotifyInterface+".CloseNotification", 0, id)
	return call.Err
}

func (b *freedesktop) DismissAll(ctx context.Context) error {
	b.mu.Lock()
	ids := make([]uint32, 0, len(b.live))
	for id := range b.live {
		ids = append(ids, id)
	}
	b.live = map[uint32]*notify.Notification{}
	b.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		call := b.obj.CallWithContext(ctx, dbusNotifyInterface+".CloseNotification", 0, id)
		if call.Err != nil && firstErr == nil {
			firstErr = call.Err
		}
	}
	return firstErr
}

func (b *freedesktop) Capabilities(ctx context.Context) (notify.CapabilitySet, error) {
	caps, err := b.serverCapabilities(ctx)
	if err != nil {
		return nil, err
	}
	return mapServerCapabilities(caps), nil
}

// The freedesktop service has no permission model: anyone on the session
// bus may notify.
func (b *freedesktop) HasAuthorisation(context.Context) (bool, error)     { return true, nil }
func (b *freedesktop) RequestAuthorisation(context.Context) (bool, error) { return true, nil }

// Start subscribes to the notification server's signals and feeds closures
// into out. Button, click and reply callbacks are invoked here, on the
// signal goroutine.
func (b *freedesktop) Start(ctx context.Context, out chan<- notify.Event) error {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.running {
		return nil
	}

	if err := b.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchObjectPath(dbusNotifyPath),
		dbus.WithMatchInterface(dbusNotifyInterface),
	); err != nil {
		return fmt.Errorf("adding signal match: %w", err)
	}

	sigCh := make(chan *dbus.Signal, 32)
	b.conn.Signal(sigCh)
	b.sigCh = sigCh

	rctx, cancel := context.WithCancel(ctx)
	b.runCancel = cancel
	b.running = true

	b.runWG.Add(1)
	go func() {
		defer b.runWG.Done()
		for {
			select {
			case <-rctx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				b.handleSignal(sig, out)
			}
		}
	}()
	return nil
}

func (b *freedesktop) Stop(ctx context.Context) error {
	b.runMu.Lock()
	cancel := b.runCancel
	b.runCancel = nil
	wasRunning := b.running
	b.running = false
	sigCh := b.sigCh
	b.sigCh = nil
	b.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	err := b.conn.RemoveMatchSignalContext(ctx,
		dbus.WithMatchObjectPath(dbusNotifyPath),
		dbus.WithMatchInterface(dbusNotifyInterface),
	)
	if sigCh != nil {
		b.conn.RemoveSignal(sigCh)
	}
	b.runWG.Wait()
	return err
}

func (b *freedesktop) handleSignal(sig *dbus.Signal, out chan<- notify.Event) {
	if sig == nil {
		return
	}
	switch sig.Name {
	case dbusNotifyInterface + ".ActionInvoked":
		if len(sig.Body) < 2 {
			return
		}
		id, ok1 := sig.Body[0].(uint32)
		key, ok2 := sig.Body[1].(string)
		if !ok1 || !ok2 {
			return
		}
		b.invokeAction(id, key, "")

	case dbusNotifyInterface + ".NotificationReplied":
		if len(sig.Body) < 2 {
			return
		}
		id, ok1 := sig.Body[0].(uint32)
		text, ok2 := sig.Body[1].(string)
		if !ok1 || !ok2 {
			return
		}
		b.invokeAction(id, inlineReplyKey, text)

	case dbusNotifyInterface + ".NotificationClosed":
		if len(sig.Body) < 2 {
			return
		}
		id, ok1 := sig.Body[0].(uint32)
		reason, ok2 := sig.Body[1].(uint32)
		if !ok1 || !ok2 {
			return
		}
		b.handleClosed(id, reason, out)
	}
}

func (b *freedesktop) invokeAction(id uint32, key, replyText string) {
	b.mu.Lock()
	n := b.live[id]
	b.mu.Unlock()
	if n == nil {
		return
	}

	switch key {
	case defaultActionKey:
		if n.OnClicked != nil {
			n.OnClicked()
		}
	case inlineReplyKey:
		if n.ReplyField != nil && n.ReplyField.OnReplied != nil {
			n.ReplyField.OnReplied(replyText)
		}
	default:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(n.Buttons) {
			b.log.Debug("unknown action key", logx.Uint64("id", uint64(id)), logx.String("key", key))
			return
		}
		if n.Buttons[idx].OnPressed != nil {
			n.Buttons[idx].OnPressed()
		}
	}
}

func (b *freedesktop) handleClosed(id, reason uint32, out chan<- notify.Event) {
	b.mu.Lock()
	n := b.live[id]
	delete(b.live, id)
	b.mu.Unlock()

	if n != nil && reason == fdoReasonDismissed && n.OnDismissed != nil {
		n.OnDismissed()
	}

	ev := notify.Event{
		Kind:       notify.KindDismissed,
		Identifier: strconv.FormatUint(uint64(id), 10),
		Reason:     closeReason(reason),
	}
	select {
	case out <- ev:
	default:
		b.log.Debug("dropping close event, consumer behind", logx.Uint64("id", uint64(id)))
	}
}

func closeReason(reason uint32) string {
	switch reason {
	case fdoReasonExpired:
		return notify.ReasonExpired
	case fdoReasonDismissed:
		return notify.ReasonDismissed
	case fdoReasonClosed:
		return notify.ReasonClosed
	default:
		return notify.ReasonUndefined
	}
}
