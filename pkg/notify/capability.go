package notify

// Capability names an optional feature a backend may or may not support.
// Callers use the capability set to degrade gracefully, e.g. skip reply
// fields on platforms that cannot render them. The core does not police
// capabilities itself.
type Capability string

const (
	CapAppName     Capability = "app-name"
	CapTitle       Capability = "title"
	CapMessage     Capability = "message"
	CapUrgency     Capability = "urgency"
	CapIcon        Capability = "icon"
	CapIconFile    Capability = "icon-file"
	CapIconName    Capability = "icon-name"
	CapButtons     Capability = "buttons"
	CapReplyField  Capability = "reply-field"
	CapAttachment  Capability = "attachment"
	CapOnClicked   Capability = "on-clicked"
	CapOnDismissed Capability = "on-dismissed"
	CapSound       Capability = "sound"
	CapSoundFile   Capability = "sound-file"
	CapSoundName   Capability = "sound-name"
	CapThread      Capability = "thread"
	CapTimeout     Capability = "timeout"
)

// CapabilitySet is the set of capabilities a backend reports.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Add inserts capabilities into the set and returns it for chaining.
func (s CapabilitySet) Add(caps ...Capability) CapabilitySet {
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}
