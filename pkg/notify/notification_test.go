package notify

import (
	"strings"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	n := New("title", "message")
	if n.Urgency != UrgencyNormal {
		t.Fatalf("Urgency = %q, want normal", n.Urgency)
	}
	if n.Timeout != -1 {
		t.Fatalf("Timeout = %d, want -1", n.Timeout)
	}
	if n.Identifier() != "" {
		t.Fatalf("fresh notification has identifier %q", n.Identifier())
	}
	if n.Delivered() {
		t.Fatal("fresh notification reports delivered")
	}
}

func TestNotificationString(t *testing.T) {
	n := New("build done", "all green")
	if s := n.String(); !strings.Contains(s, "build done") {
		t.Fatalf("String() = %q, want title included", s)
	}
}

func TestCapabilitySet(t *testing.T) {
	s := NewCapabilitySet(CapTitle, CapMessage)
	if !s.Has(CapTitle) {
		t.Fatal("missing cap-title")
	}
	if s.Has(CapButtons) {
		t.Fatal("unexpected cap-buttons")
	}
	s.Add(CapButtons, CapThread)
	if !s.Has(CapButtons) || !s.Has(CapThread) {
		t.Fatal("Add did not insert")
	}
}
