package main

import (
	"fmt"
	"time"
)

// humanizeSince renders d as a short relative-time string the way
// original_source's commands/peers.rs and audit.rs do via
// chrono_humanize::HumanTime. None of the full example repos actually call
// a humanize library from code (only unrelated go.mod manifests list one
// transitively), so this is hand-rolled against the stdlib time package
// rather than grounded on an ecosystem dependency.
func humanizeSince(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}

	d := time.Since(t)
	if d < 0 {
		d = 0
	}

	switch {
	case d < time.Minute:
		return "a few seconds ago"
	case d < 2*time.Minute:
		return "a minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d/time.Minute))
	case d < 2*time.Hour:
		return "an hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d/time.Hour))
	case d < 48*time.Hour:
		return "a day ago"
	default:
		return fmt.Sprintf("%d days ago", int(d/(24*time.Hour)))
	}
}
