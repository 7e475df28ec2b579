package backends

import (
	"testing"

	"desknotify/pkg/notify"
)

func TestMapServerCapabilities(t *testing.T) {
	tests := []struct {
		name    string
		server  []string
		want    []notify.Capability
		wantNot []notify.Capability
	}{
		{
			name:    "bare server",
			server:  nil,
			want:    []notify.Capability{notify.CapTitle, notify.CapUrgency, notify.CapTimeout},
			wantNot: []notify.Capability{notify.CapMessage, notify.CapButtons, notify.CapReplyField},
		},
		{
			name:    "typical GNOME",
			server:  []string{"actions", "body", "body-markup", "icon-static", "persistence", "sound"},
			want:    []notify.Capability{notify.CapMessage, notify.CapButtons, notify.CapOnClicked, notify.CapSoundName},
			wantNot: []notify.Capability{notify.CapReplyField, notify.CapThread},
		},
		{
			name:   "inline reply server",
			server: []string{"body", "actions", "inline-reply"},
			want:   []notify.Capability{notify.CapReplyField},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mapServerCapabilities(tc.server)
			for _, c := range tc.want {
				if !got.Has(c) {
					t.Errorf("missing capability %q", c)
				}
			}
			for _, c := range tc.wantNot {
				if got.Has(c) {
					t.Errorf("unexpected capability %q", c)
				}
			}
		})
	}
}
