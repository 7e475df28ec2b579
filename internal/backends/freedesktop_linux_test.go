//go:build linux

package backends

import (
	"context"
	"os"
	"testing"

	"desknotify/pkg/logx"
	"desknotify/pkg/notify"
)

func sessionBusOrSkip(t *testing.T) notify.Backend {
	t.Helper()
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}
	b, err := newFreedesktop("desknotify-test", logx.Nop())
	if err != nil {
		t.Fatalf("newFreedesktop: %v", err)
	}
	return b
}

func TestFreedesktopDeliverAndDismiss(t *testing.T) {
	b := sessionBusOrSkip(t)
	ctx := context.Background()

	n := notify.New("desknotify test", "test notification from unit test")
	n.Urgency = notify.UrgencyLow
	n.Timeout = 1

	id, err := b.Deliver(ctx, n, nil)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if id == "" || id == "0" {
		t.Fatalf("Deliver returned identifier %q, want server-assigned id", id)
	}
}

func TestFreedesktopCapabilities(t *testing.T) {
	b := sessionBusOrSkip(t)

	caps, err := b.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	// The Notify call itself always carries these.
	if !caps.Has(notify.CapTitle) || !caps.Has(notify.CapUrgency) {
		t.Fatalf("capability set missing baseline entries: %v", caps)
	}
}

func TestUrgencyByte(t *testing.T) {
	tests := []struct {
		u    notify.Urgency
		want byte
	}{
		{notify.UrgencyLow, 0},
		{notify.UrgencyNormal, 1},
		{notify.Urgency(""), 1},
		{notify.UrgencyCritical, 2},
	}
	for _, tc := range tests {
		if got := urgencyByte(tc.u); got != tc.want {
			t.Errorf("urgencyByte(%q) = %d, want %d", tc.u, got, tc.want)
		}
	}
}
