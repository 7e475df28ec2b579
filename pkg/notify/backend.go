package notify

import (
	"context"
	"errors"
)

var (
	// ErrNotAuthorised is returned when the platform refuses to send
	// notifications for this application. Unlike ordinary delivery
	// failures it is surfaced to the caller, who may want to prompt the
	// user via RequestAuthorisation.
	ErrNotAuthorised = errors.New("not authorised to send notifications")

	// ErrNilNotification is returned by Send for a nil notification.
	ErrNilNotification = errors.New("nil notification")

	// ErrAlreadySent is returned by Send when the notification has
	// already been through a delivery attempt.
	ErrAlreadySent = errors.New("notification already sent")
)

// Backend is the per-platform delivery primitive set the facade depends on.
//
// Implementations translate the notification model into OS-specific calls.
// They own callback invocation: when the OS reports a click, button press,
// reply or dismissal, the backend invokes the matching callback on the
// notification it delivered. The core never invokes callbacks.
//
// Deliver must return an error when the notification could not be scheduled
// at all. Partial delivery (e.g. an icon that failed to load) should be
// logged by the backend, not returned.
type Backend interface {
	// Deliver schedules n and returns the platform identifier. replaces is
	// the entry just evicted from the cache, if any; backends may reuse its
	// platform slot.
	Deliver(ctx context.Context, n *Notification, replaces *Notification) (string, error)

	// Dismiss removes a delivered notification from the platform's
	// notification center.
	Dismiss(ctx context.Context, n *Notification) error

	// DismissAll removes every notification this backend delivered.
	DismissAll(ctx context.Context) error

	// Capabilities reports the optional features this backend supports on
	// the current platform.
	Capabilities(ctx context.Context) (CapabilitySet, error)

	HasAuthorisation(ctx context.Context) (bool, error)
	RequestAuthorisation(ctx context.Context) (bool, error)
}

// EventKind classifies a backend-originated event.
type EventKind string

const (
	// KindDismissed reports that the OS closed a notification: the user
	// dismissed it, it expired, or the server dropped it.
	KindDismissed EventKind = "dismissed"
)

// Close reasons, for logging. Backends map their platform codes onto these.
const (
	ReasonExpired   = "expired"
	ReasonDismissed = "dismissed"
	ReasonClosed    = "closed"
	ReasonUndefined = "undefined"
)

// Event is an OS-originated notification event reported by a backend.
type Event struct {
	Kind       EventKind
	Identifier string
	Reason     string
}

// EventStreamer is implemented by backends that can observe OS events
// (dismissals, clicks) after delivery. The facade consumes the stream and
// keeps the cache in sync; callbacks are the backend's job.
//
// Start follows the adapter convention: it returns immediately and emits
// events on out until Stop is called or ctx is cancelled. Sends must not
// block; drop when the consumer is behind.
type EventStreamer interface {
	Start(ctx context.Context, out chan<- Event) error
	Stop(ctx context.Context) error
}
