package backends

import "desknotify/pkg/notify"

// mapServerCapabilities translates freedesktop notification-server
// capability strings into the portable capability set.
//
// Everything the Notify call itself carries (app name, summary, icon,
// urgency hint, expire timeout) is always available; the rest depends on
// what the server advertises. Thread grouping has no freedesktop
// equivalent, so it is never reported.
func mapServerCapabilities(server []string) notify.CapabilitySet {
	caps := notify.NewCapabilitySet(
		notify.CapAppName,
		notify.CapTitle,
		notify.CapIcon,
		notify.CapIconFile,
		notify.CapIconName,
		notify.CapUrgency,
		notify.CapTimeout,
		notify.CapOnDismissed,
	)
	for _, c := range server {
		switch c {
		case "body":
			caps.Add(notify.CapMessage)
		case "actions":
			caps.Add(notify.CapButtons, notify.CapOnClicked)
		case "sound":
			caps.Add(notify.CapSound, notify.CapSoundFile, notify.CapSoundName)
		case "body-images":
			caps.Add(notify.CapAttachment)
		case "inline-reply":
			caps.Add(notify.CapReplyField)
		}
	}
	return caps
}
