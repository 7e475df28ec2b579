package notify

import "fmt"

// DefaultSound names the platform default notification sound.
const DefaultSound = "default"

// Urgency is an advisory notification priority. Backends may ignore it.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyNormal   Urgency = "normal"
	UrgencyLow      Urgency = "low"
)

// Button is an action button on an interactive notification.
// OnPressed is invoked by the backend when the matching OS event arrives;
// the core stores and forwards it verbatim, it never calls it itself.
type Button struct {
	Title     string
	OnPressed func()
}

// ReplyField is an inline text-reply field on an interactive notification.
// Empty titles default to "Reply" / "Send" at send time.
type ReplyField struct {
	Title       string
	ButtonTitle string
	OnReplied   func(text string)
}

// state tracks a notification through its delivery lifecycle.
//
// unsent -> pending -> delivered | failed, delivered -> cleared.
// There is no transition back out of cleared or failed.
type state uint8

const (
	stateUnsent state = iota
	statePending
	stateDelivered
	stateFailed
	stateCleared
)

// Notification is a single desktop notification.
//
// Construct it with New (or a struct literal plus exported fields), hand it
// to Notifier.Send, and keep the pointer if you want to clear it later.
// The platform identifier and lifecycle state are managed by the facade and
// are only readable.
type Notification struct {
	Title   string
	Message string
	Urgency Urgency

	// Icon is a file URI or a theme icon name. Resolution is entirely the
	// backend's responsibility.
	Icon string

	Buttons    []Button
	ReplyField *ReplyField

	// OnClicked and OnDismissed are invoked by the backend on the
	// corresponding OS event.
	OnClicked   func()
	OnDismissed func()

	// Attachment is a URI to display alongside the notification.
	Attachment string

	// Sound requests the platform default sound.
	//
	// Deprecated: set SoundFile to DefaultSound instead. A true value is
	// translated at send time and a deprecation warning is emitted.
	Sound bool

	// SoundFile names the sound to play, or DefaultSound.
	SoundFile string

	// Thread groups related notifications. Backend-interpreted.
	Thread string

	// Timeout is the display duration in seconds. Zero or negative means
	// the platform default.
	Timeout int

	// id is the platform identifier, assigned exactly once per delivery.
	// Empty means "not yet delivered".
	id    string
	state state
}

// New returns a notification with the usual defaults: normal urgency and
// the platform default timeout.
func New(title, message string) *Notification {
	return &Notification{
		Title:   title,
		Message: message,
		Urgency: UrgencyNormal,
		Timeout: -1,
	}
}

// Identifier returns the platform identifier assigned on successful
// delivery, or "" if the notification has not been delivered.
func (n *Notification) Identifier() string { return n.id }

// Delivered reports whether the notification is currently delivered
// (sent successfully and not yet cleared).
func (n *Notification) Delivered() bool { return n.state == stateDelivered }

func (n *Notification) String() string {
	return fmt.Sprintf("Notification(title=%q, id=%q)", n.Title, n.id)
}
