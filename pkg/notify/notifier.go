package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"desknotify/internal/eventbus"
	"desknotify/pkg/logx"
)

// Config configures a Notifier.
type Config struct {
	// AppName identifies the application in the notification center.
	// Defaults to "App".
	AppName string

	// Limit bounds how many notifications are kept live at once; sending
	// past the limit evicts the oldest. 0 means unbounded.
	Limit int
}

// Notifier orchestrates notification delivery through a Backend while
// keeping the cache and identifier index consistent under partial failure.
//
// All cache mutation is serialized by one mutex; OS-originated dismissal
// events are marshalled onto the same mutex by the event loop started with
// Start. Safe for concurrent use.
type Notifier struct {
	mu      sync.Mutex
	cfg     Config
	backend Backend
	cache   *cache

	log logx.Logger
	bus eventbus.Bus

	// deprOnce limits the legacy-Sound warning to one log line per
	// notifier; the bus event still fires every time.
	deprOnce sync.Once

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
}

// NewNotifier builds a notifier around the given backend. log and bus may be
// zero/nil; both degrade to no-ops.
func NewNotifier(cfg Config, backend Backend, log logx.Logger, bus eventbus.Bus) *Notifier {
	if cfg.AppName == "" {
		cfg.AppName = "App"
	}
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{
		cfg:     cfg,
		backend: backend,
		cache:   newCache(cfg.Limit),
		log:     log,
		bus:     bus,
	}
}

// AppName returns the configured application name.
func (nf *Notifier) AppName() string { return nf.cfg.AppName }

// Send delivers n through the backend.
//
// Delivery failures do not come back as errors: notifications are
// best-effort, so a backend failure is logged, published on the bus as
// notify.failed, and the cache is left exactly as it was. The returned
// error is reserved for caller mistakes (nil or reused notification) and
// for ErrNotAuthorised, which the caller can act on.
func (nf *Notifier) Send(ctx context.Context, n *Notification) error {
	if n == nil {
		return ErrNilNotification
	}

	nf.mu.Lock()
	defer nf.mu.Unlock()

	if n.state != stateUnsent {
		return fmt.Errorf("%w: %s", ErrAlreadySent, n)
	}
	nf.normalize(n)
	n.state = statePending

	// Free the oldest slot first so the backend can reuse it. If delivery
	// fails we put the evicted entry back; a failed send must never cost
	// us a previously-displayed notification.
	evicted := nf.cache.evictOldest()

	id, err := nf.backend.Deliver(ctx, n, evicted)
	if err != nil {
		if evicted != nil {
			nf.cache.restore(evicted)
		}
		n.state = stateFailed
		nf.log.Warn("notification delivery failed",
			logx.String("title", n.Title),
			logx.String("app", nf.cfg.AppName),
			logx.Err(err))
		nf.publish("notify.failed", EventRecord{
			Title:   n.Title,
			Urgency: n.Urgency,
			Thread:  n.Thread,
			Error:   err.Error(),
		})
		if errors.Is(err, ErrNotAuthorised) {
			return err
		}
		return nil
	}

	n.id = id
	n.state = stateDelivered
	nf.cache.record(n)
	nf.publish("notify.delivered", EventRecord{
		Identifier: id,
		Title:      n.Title,
		Urgency:    n.Urgency,
		Thread:     n.Thread,
	})
	return nil
}

// Clear removes n from the notification center.
//
// Backend failures are logged, not returned; the notification always leaves
// the cache. Clearing an undelivered notification is a benign no-op.
func (nf *Notifier) Clear(ctx context.Context, n *Notification) {
	if n == nil {
		return
	}

	nf.mu.Lock()
	defer nf.mu.Unlock()

	if n.id != "" {
		if err := nf.backend.Dismiss(ctx, n); err != nil {
			nf.log.Warn("notification dismiss failed",
				logx.String("identifier", n.id),
				logx.Err(err))
			nf.publish("notify.clear_failed", EventRecord{
				Identifier: n.id,
				Title:      n.Title,
				Error:      err.Error(),
			})
		}
	}
	if n.state == stateDelivered {
		n.state = stateCleared
	}
	nf.cache.forget(n)
	nf.publish("notify.cleared", EventRecord{Identifier: n.id, Title: n.Title})
}

// ClearAll removes every notification this notifier delivered. The local
// cache is reset optimistically even when the backend call fails.
func (nf *Notifier) ClearAll(ctx context.Context) {
	nf.mu.Lock()
	defer nf.mu.Unlock()

	if err := nf.backend.DismissAll(ctx); err != nil {
		nf.log.Warn("dismiss-all failed", logx.Err(err))
		nf.publish("notify.clear_failed", EventRecord{Error: err.Error()})
	}
	for _, n := range nf.cache.snapshot() {
		if n.state == stateDelivered {
			n.state = stateCleared
		}
	}
	nf.cache.clear()
	nf.publish("notify.cleared_all", EventRecord{})
}

// CurrentNotifications returns the currently-displayed notifications,
// oldest first. The slice is a copy.
func (nf *Notifier) CurrentNotifications() []*Notification {
	nf.mu.Lock()
	defer nf.mu.Unlock()
	return nf.cache.snapshot()
}

// Lookup finds a live notification by platform identifier.
func (nf *Notifier) Lookup(identifier string) (*Notification, bool) {
	nf.mu.Lock()
	defer nf.mu.Unlock()
	return nf.cache.lookup(identifier)
}

// Capabilities reports what the backend supports on this platform.
func (nf *Notifier) Capabilities(ctx context.Context) (CapabilitySet, error) {
	return nf.backend.Capabilities(ctx)
}

// HasAuthorisation reports whether we may send notifications.
func (nf *Notifier) HasAuthorisation(ctx context.Context) (bool, error) {
	return nf.backend.HasAuthorisation(ctx)
}

// RequestAuthorisation asks the platform for permission to send
// notifications. On platforms without a permission model it returns true
// immediately.
func (nf *Notifier) RequestAuthorisation(ctx context.Context) (bool, error) {
	return nf.backend.RequestAuthorisation(ctx)
}

// Start begins consuming OS-originated events if the backend supports them.
// Backends without an event stream make Start a no-op. Start is idempotent.
func (nf *Notifier) Start(ctx context.Context) error {
	es, ok := nf.backend.(EventStreamer)
	if !ok {
		return nil
	}

	nf.runMu.Lock()
	defer nf.runMu.Unlock()
	if nf.running {
		return nil
	}

	rctx, cancel := context.WithCancel(ctx)
	out := make(chan Event, 64)
	if err := es.Start(rctx, out); err != nil {
		cancel()
		return err
	}
	nf.running = true
	nf.runCancel = cancel

	nf.runWG.Add(1)
	go func() {
		defer nf.runWG.Done()
		for {
			select {
			case <-rctx.Done():
				return
			case ev := <-out:
				nf.handleEvent(ev)
			}
		}
	}()
	return nil
}

// Stop stops the backend event stream, if any.
func (nf *Notifier) Stop(ctx context.Context) error {
	nf.runMu.Lock()
	cancel := nf.runCancel
	nf.runCancel = nil
	wasRunning := nf.running
	nf.running = false
	nf.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	var err error
	if es, ok := nf.backend.(EventStreamer); ok {
		err = es.Stop(ctx)
	}
	nf.runWG.Wait()
	return err
}

// handleEvent applies an OS-originated event to the cache. This is the one
// inbound path outside the request/response flow; it takes the same mutex,
// so it is ordered before any later cache read.
func (nf *Notifier) handleEvent(ev Event) {
	if ev.Kind != KindDismissed {
		return
	}
	nf.mu.Lock()
	defer nf.mu.Unlock()

	n, ok := nf.cache.lookup(ev.Identifier)
	if !ok {
		// Already cleared locally, or a stale identifier. Nothing to do.
		return
	}
	if n.state == stateDelivered {
		n.state = stateCleared
	}
	nf.cache.forget(n)
	nf.publish("notify.dismissed", EventRecord{
		Identifier: ev.Identifier,
		Title:      n.Title,
		Reason:     ev.Reason,
	})
}

// normalize applies defaults and translates deprecated fields, so the rest
// of the pipeline sees one canonical shape.
func (nf *Notifier) normalize(n *Notification) {
	if n.Urgency == "" {
		n.Urgency = UrgencyNormal
	}
	if n.ReplyField != nil {
		if n.ReplyField.Title == "" {
			n.ReplyField.Title = "Reply"
		}
		if n.ReplyField.ButtonTitle == "" {
			n.ReplyField.ButtonTitle = "Send"
		}
	}
	if n.Sound && n.SoundFile == "" {
		n.SoundFile = DefaultSound
		nf.deprOnce.Do(func() {
			nf.log.Warn("Notification.Sound is deprecated; set SoundFile to notify.DefaultSound instead")
		})
		nf.publish("notify.deprecated_sound", EventRecord{Title: n.Title})
	}
}

func (nf *Notifier) publish(typ string, rec EventRecord) {
	if nf.bus == nil {
		return
	}
	rec.At = time.Now()
	nf.bus.Publish(eventbus.Event{Type: typ, Time: rec.At, Data: rec})
}
