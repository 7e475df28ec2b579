package notify

import "time"

// Bus event types published by the Notifier:
//
//	notify.delivered        - backend accepted the notification
//	notify.failed           - delivery failed, eviction rolled back
//	notify.dismissed        - OS reported a close (user, expiry, server)
//	notify.cleared          - caller cleared one notification
//	notify.cleared_all      - caller cleared everything
//	notify.clear_failed     - backend dismiss failed (cache cleared anyway)
//	notify.deprecated_sound - legacy Sound flag translated to SoundFile
//
// Every event carries an EventRecord as Data.

// EventRecord is emitted on the event bus for notification lifecycle events.
// Keep it small; Data may be logged/serialized by subscribers.
type EventRecord struct {
	Identifier string    `json:"identifier,omitempty"`
	Title      string    `json:"title,omitempty"`
	Urgency    Urgency   `json:"urgency,omitempty"`
	Thread     string    `json:"thread,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
	Error      string    `json:"error,omitempty"`
}
