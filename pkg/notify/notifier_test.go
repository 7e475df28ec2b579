package notify

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"desknotify/internal/eventbus"
	"desknotify/pkg/logx"
)

type deliverCall struct {
	n        *Notification
	replaces *Notification
}

// stubBackend is a scriptable in-memory backend.
type stubBackend struct {
	mu         sync.Mutex
	nextID     int
	deliverErr error
	dismissErr error

	delivered  []deliverCall
	dismissed  []string
	dismissAll int

	caps       CapabilitySet
	authorised bool
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		caps:       NewCapabilitySet(CapTitle, CapMessage, CapButtons),
		authorised: true,
	}
}

func (b *stubBackend) Deliver(_ context.Context, n *Notification, replaces *Notification) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delivered = append(b.delivered, deliverCall{n: n, replaces: replaces})
	if b.deliverErr != nil {
		return "", b.deliverErr
	}
	b.nextID++
	return strconv.Itoa(b.nextID), nil
}

func (b *stubBackend) Dismiss(_ context.Context, n *Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dismissed = append(b.dismissed, n.Identifier())
	return b.dismissErr
}

func (b *stubBackend) DismissAll(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dismissAll++
	return b.dismissErr
}

func (b *stubBackend) Capabilities(context.Context) (CapabilitySet, error) { return b.caps, nil }
func (b *stubBackend) HasAuthorisation(context.Context) (bool, error)     { return b.authorised, nil }
func (b *stubBackend) RequestAuthorisation(context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authorised = true
	return true, nil
}

// streamBackend adds an OS event stream on top of stubBackend.
type streamBackend struct {
	stubBackend
	outMu sync.Mutex
	out   chan<- Event
}

func (b *streamBackend) Start(_ context.Context, out chan<- Event) error {
	b.outMu.Lock()
	b.out = out
	b.outMu.Unlock()
	return nil
}

func (b *streamBackend) Stop(context.Context) error { return nil }

func (b *streamBackend) emit(ev Event) {
	b.outMu.Lock()
	defer b.outMu.Unlock()
	if b.out != nil {
		b.out <- ev
	}
}

func newTestNotifier(t *testing.T, limit int, b Backend) (*Notifier, eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	nf := NewNotifier(Config{AppName: "test", Limit: limit}, b, logx.Nop(), bus)
	return nf, bus
}

func titles(ns []*Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Title
	}
	return out
}

func waitForEvent(t *testing.T, ch <-chan eventbus.Event, typ string) eventbus.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Type == typ {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", typ)
		}
	}
}

func TestSendRecordsAndAssignsIdentifier(t *testing.T) {
	nf, _ := newTestNotifier(t, 0, newStubBackend())

	n := New("hello", "world")
	if err := nf.Send(context.Background(), n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n.Identifier() == "" {
		t.Fatal("identifier not assigned after successful delivery")
	}
	if !n.Delivered() {
		t.Fatal("notification not marked delivered")
	}
	if got, ok := nf.Lookup(n.Identifier()); !ok || got != n {
		t.Fatal("delivered notification not indexed")
	}
}

func TestSendFIFOEviction(t *testing.T) {
	b := newStubBackend()
	nf, _ := newTestNotifier(t, 2, b)

	ctx := context.Background()
	a, bn, c := New("A", "m"), New("B", "m"), New("C", "m")
	for _, n := range []*Notification{a, bn, c} {
		if err := nf.Send(ctx, n); err != nil {
			t.Fatalf("Send(%s): %v", n.Title, err)
		}
	}

	got := titles(nf.CurrentNotifications())
	if len(got) != 2 || got[0] != "B" || got[1] != "C" {
		t.Fatalf("cache = %v, want [B C]", got)
	}
	if _, ok := nf.Lookup(a.Identifier()); ok {
		t.Fatal("evicted notification still indexed")
	}

	// The third delivery must have been offered A's slot for reuse.
	last := b.delivered[len(b.delivered)-1]
	if last.replaces != a {
		t.Fatalf("Deliver(replaces) = %v, want evicted A", last.replaces)
	}
}

func TestSendFailureRollsBackEviction(t *testing.T) {
	b := newStubBackend()
	nf, bus := newTestNotifier(t, 1, b)
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	ctx := context.Background()
	a := New("A", "m")
	if err := nf.Send(ctx, a); err != nil {
		t.Fatalf("Send(A): %v", err)
	}
	before := titles(nf.CurrentNotifications())

	b.deliverErr = errors.New("session bus gone")
	failed := New("B", "m")
	if err := nf.Send(ctx, failed); err != nil {
		t.Fatalf("Send(B) surfaced a delivery failure: %v", err)
	}

	after := titles(nf.CurrentNotifications())
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("cache changed across failed send: before=%v after=%v", before, after)
	}
	if got, ok := nf.Lookup(a.Identifier()); !ok || got != a {
		t.Fatal("rolled-back notification lost its index entry")
	}
	if failed.Delivered() {
		t.Fatal("failed notification marked delivered")
	}
	waitForEvent(t, ch, "notify.failed")
}

func TestSendNotAuthorisedSurfaces(t *testing.T) {
	b := newStubBackend()
	b.deliverErr = ErrNotAuthorised
	nf, _ := newTestNotifier(t, 0, b)

	err := nf.Send(context.Background(), New("A", "m"))
	if !errors.Is(err, ErrNotAuthorised) {
		t.Fatalf("Send() err = %v, want ErrNotAuthorised", err)
	}
}

func TestSendProgrammerErrors(t *testing.T) {
	nf, _ := newTestNotifier(t, 0, newStubBackend())
	ctx := context.Background()

	if err := nf.Send(ctx, nil); !errors.Is(err, ErrNilNotification) {
		t.Fatalf("Send(nil) err = %v", err)
	}

	n := New("A", "m")
	if err := nf.Send(ctx, n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := nf.Send(ctx, n); !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("second Send err = %v, want ErrAlreadySent", err)
	}
}

func TestClearRoundTrip(t *testing.T) {
	b := newStubBackend()
	nf, _ := newTestNotifier(t, 0, b)
	ctx := context.Background()

	n := New("A", "m")
	if err := nf.Send(ctx, n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	id := n.Identifier()
	nf.Clear(ctx, n)

	if len(nf.CurrentNotifications()) != 0 {
		t.Fatal("cleared notification still displayed")
	}
	if _, ok := nf.Lookup(id); ok {
		t.Fatal("cleared identifier still indexed")
	}
	if len(b.dismissed) != 1 || b.dismissed[0] != id {
		t.Fatalf("backend dismissed %v, want [%s]", b.dismissed, id)
	}
	if n.Delivered() {
		t.Fatal("cleared notification still reports delivered")
	}
}

func TestClearUndeliveredIsNoOp(t *testing.T) {
	b := newStubBackend()
	nf, _ := newTestNotifier(t, 0, b)

	// Never sent: the backend must not be asked to dismiss an empty
	// identifier, and nothing should change.
	nf.Clear(context.Background(), New("A", "m"))
	if len(b.dismissed) != 0 {
		t.Fatalf("backend dismiss called for undelivered notification: %v", b.dismissed)
	}
}

func TestClearAllResetsCacheDespiteBackendFailure(t *testing.T) {
	b := newStubBackend()
	nf, _ := newTestNotifier(t, 0, b)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"A", "B", "C"} {
		n := New(title, "m")
		if err := nf.Send(ctx, n); err != nil {
			t.Fatalf("Send(%s): %v", title, err)
		}
		ids = append(ids, n.Identifier())
	}

	b.dismissErr = errors.New("server unreachable")
	nf.ClearAll(ctx)

	if got := nf.CurrentNotifications(); len(got) != 0 {
		t.Fatalf("cache not empty after ClearAll: %v", titles(got))
	}
	for _, id := range ids {
		if _, ok := nf.Lookup(id); ok {
			t.Fatalf("identifier %q still indexed after ClearAll", id)
		}
	}
	if b.dismissAll != 1 {
		t.Fatalf("DismissAll called %d times, want 1", b.dismissAll)
	}
}

func TestDeprecatedSoundFlag(t *testing.T) {
	nf, bus := newTestNotifier(t, 0, newStubBackend())
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	n := New("A", "m")
	n.Sound = true
	if err := nf.Send(context.Background(), n); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if n.SoundFile != DefaultSound {
		t.Fatalf("SoundFile = %q, want %q", n.SoundFile, DefaultSound)
	}
	waitForEvent(t, ch, "notify.deprecated_sound")
}

func TestSoundFileWinsOverLegacyFlag(t *testing.T) {
	nf, _ := newTestNotifier(t, 0, newStubBackend())

	n := New("A", "m")
	n.Sound = true
	n.SoundFile = "ping"
	if err := nf.Send(context.Background(), n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n.SoundFile != "ping" {
		t.Fatalf("explicit SoundFile overwritten: %q", n.SoundFile)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	b := newStubBackend()
	nf, _ := newTestNotifier(t, 0, b)

	n := &Notification{Title: "A", Message: "m", ReplyField: &ReplyField{}}
	if err := nf.Send(context.Background(), n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n.Urgency != UrgencyNormal {
		t.Fatalf("Urgency = %q, want normal", n.Urgency)
	}
	if n.ReplyField.Title != "Reply" || n.ReplyField.ButtonTitle != "Send" {
		t.Fatalf("reply field defaults not applied: %+v", n.ReplyField)
	}
}

func TestBackendDismissalRemovesFromCache(t *testing.T) {
	b := &streamBackend{stubBackend: *newStubBackend()}
	bus := eventbus.New()
	nf := NewNotifier(Config{AppName: "test"}, b, logx.Nop(), bus)
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	ctx := context.Background()
	if err := nf.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer nf.Stop(context.Background())

	x := New("X", "m")
	if err := nf.Send(ctx, x); err != nil {
		t.Fatalf("Send: %v", err)
	}

	b.emit(Event{Kind: KindDismissed, Identifier: x.Identifier(), Reason: ReasonDismissed})
	waitForEvent(t, ch, "notify.dismissed")

	if got := nf.CurrentNotifications(); len(got) != 0 {
		t.Fatalf("dismissed notification still displayed: %v", titles(got))
	}
	if _, ok := nf.Lookup(x.Identifier()); ok {
		t.Fatal("dismissed identifier still indexed")
	}
}

func TestCapabilityPassThrough(t *testing.T) {
	b := newStubBackend()
	nf, _ := newTestNotifier(t, 0, b)

	caps, err := nf.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	if !caps.Has(CapButtons) || caps.Has(CapReplyField) {
		t.Fatalf("unexpected capability set: %v", caps)
	}

	ok, err := nf.HasAuthorisation(context.Background())
	if err != nil || !ok {
		t.Fatalf("HasAuthorisation = %v, %v", ok, err)
	}
}
