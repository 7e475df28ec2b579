// Package notify implements the platform-independent half of desktop
// notifications: the notification data model, the bounded cache of
// currently-displayed notifications, and the Notifier facade that
// orchestrates delivery through a pluggable Backend.
//
// # Delivery
//
// Delivery is best-effort by design. A failed delivery never reaches the
// caller as an error; it is logged at warning level and published on the
// event bus so the host application can observe it without handling it.
// The only error class that interrupts caller control flow is a missing
// authorisation (ErrNotAuthorised), because that is a precondition the
// caller may want to fix by prompting the user.
//
// # Cache
//
// The facade tracks every currently-displayed notification in a bounded,
// oldest-first cache paired with an identifier index. When the cache is at
// its configured limit, sending evicts the oldest entry and hands it to the
// backend so the platform slot can be reused. If the backend fails, the
// eviction is rolled back; the cache after a failed send is identical to the
// cache before it.
//
// # Backends
//
// One Backend implementation exists per platform (D-Bus on Linux, a
// fallback elsewhere). Backends translate the model into OS calls, invoke
// user callbacks on OS events, and report OS-originated dismissals back to
// the core so the cache never goes stale.
package notify
