// Package calendar turns raw provider and backend event records into the
// single event shape every UI surface consumes.
package calendar

import (
	"strconv"
	"strings"
	"time"

	"github.com/shikhar-s-7/sara-scheduler-ui/server/timezone"
)

// NoTitle replaces a missing or blank title.
const NoTitle = "(No Title)"

// Mode selects the output variant.
type Mode int

const (
	// ModeEmbed is the plain shape used by the calendar widget.
	ModeEmbed Mode = iota
	// ModeUpcoming adds grouping and classification for the upcoming list.
	ModeUpcoming
)

// Status is the confirmation state of an event.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusTentative Status = "tentative"
	StatusCancelled Status = "cancelled"
)

// Event is a normalized event. Upcoming is nil in embed mode, which drops
// its fields from the JSON encoding.
type Event struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Start  string `json:"start"`
	End    string `json:"end"`
	AllDay bool   `json:"allDay"`
	*Upcoming
}

// Upcoming holds the fields only the upcoming list needs.
type Upcoming struct {
	DateLabel string `json:"dateLabel"`
	Status    Status `json:"status"`
	IsUrgent  bool   `json:"isUrgent"`
	// StartsGroup is true iff a date header is rendered before this event.
	StartsGroup bool `json:"startsGroup"`
}

// Options controls normalization.
type Options struct {
	Mode Mode
	// Location is the caller's day boundary for date labels. nil means UTC.
	Location *time.Location
}

// Normalize converts raw events, preserving their order. It performs no I/O
// and never fails: missing fields degrade to documented defaults.
func Normalize(raw []RawEvent, opts Options) []Event {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	events := make([]Event, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	prevLabel := ""
	for i, r := range raw {
		startAt := r.startAt()
		start, end := startAt.Value(), r.endValue()
		ev := Event{
			ID:     uniqueID(strings.TrimSpace(string(r.ID)), i, seen),
			Title:  r.title(),
			Start:  start,
			End:    end,
			AllDay: startAt.IsAllDay(),
		}

		if opts.Mode == ModeUpcoming {
			label := strings.TrimSpace(string(r.DateLabel))
			if label == "" {
				label = timezone.DayLabel(start, loc)
			}
			ev.Upcoming = &Upcoming{
				DateLabel:   label,
				Status:      ParseStatus(string(r.Status)),
				IsUrgent:    bool(r.IsUrgent) || bool(r.Urgent),
				StartsGroup: i == 0 || label != prevLabel,
			}
			prevLabel = label
		}
		events = append(events, ev)
	}
	return events
}

// ParseStatus classifies an upstream status, defaulting to confirmed.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tentative":
		return StatusTentative
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusConfirmed
	}
}

func (r RawEvent) title() string {
	for _, t := range []looseString{r.Title, r.Summary} {
		if s := strings.TrimSpace(string(t)); s != "" {
			return s
		}
	}
	return NoTitle
}

func (r RawEvent) startAt() EventTime {
	if !r.Start.IsZero() {
		return r.Start
	}
	return r.StartTime
}

func (r RawEvent) endValue() string {
	if !r.End.IsZero() {
		return r.End.Value()
	}
	return r.EndTime.Value()
}

// uniqueID returns id, or a synthesized one when it is empty or already used.
func uniqueID(id string, index int, seen map[string]struct{}) string {
	if id == "" {
		id = "event-" + strconv.Itoa(index)
	}
	candidate := id
	for n := 1; ; n++ {
		if _, dup := seen[candidate]; !dup {
			break
		}
		candidate = id + "-" + strconv.Itoa(n)
	}
	seen[candidate] = struct{}{}
	return candidate
}
