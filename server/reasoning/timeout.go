package reasoning

import "time"

// Upstream timeout and size constants.
const (
	// ChatTimeout is the hard wall-clock budget for one chat round-trip.
	ChatTimeout = 600 * time.Second

	// UpcomingTimeout bounds the upcoming-events lookup.
	UpcomingTimeout = 30 * time.Second

	// CalendarTimeout bounds one Google Calendar listing.
	CalendarTimeout = 30 * time.Second

	// MaxResponseBytes caps how much of a backend body is read.
	MaxResponseBytes = 4 << 20

	// MaxMessages caps the conversation length accepted from the browser.
	MaxMessages = 200
)
