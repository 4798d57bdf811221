package calendar

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shikhar-s-7/sara-scheduler-ui/server/timezone"
)

// RawEvent is an event as delivered by the calendar provider or by the
// reasoning backend. Both shapes decode into it:
//
//	provider: {"id", "summary", "start": {"dateTime"|"date"}, "end": {...}, "status"}
//	backend:  {"id", "title", "start_time", "end_time", "date_label", "status", "is_urgent"}
//
// Decoding is lenient: a field of the wrong type decodes to its zero value
// instead of failing the whole list.
type RawEvent struct {
	ID        looseString `json:"id"`
	Title     looseString `json:"title"`
	Summary   looseString `json:"summary"`
	Start     EventTime   `json:"start"`
	End       EventTime   `json:"end"`
	StartTime EventTime   `json:"start_time"`
	EndTime   EventTime   `json:"end_time"`
	DateLabel looseString `json:"date_label"`
	Status    looseString `json:"status"`
	IsUrgent  looseBool   `json:"is_urgent"`
	Urgent    looseBool   `json:"isUrgent"`
}

// NewProviderEvent builds a raw event from fields a provider SDK has already
// decoded.
func NewProviderEvent(id, summary, status string, start, end EventTime) RawEvent {
	return RawEvent{
		ID:      looseString(id),
		Summary: looseString(summary),
		Start:   start,
		End:     end,
		Status:  looseString(status),
	}
}

// EventTime is either a provider time object or a bare string.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Value returns the date-time when present, else the date-only value.
func (t EventTime) Value() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// IsZero reports whether neither form is present.
func (t EventTime) IsZero() bool {
	return t.DateTime == "" && t.Date == ""
}

// IsAllDay reports whether the time carries no time of day. A dateTime that
// only holds a calendar date also counts.
func (t EventTime) IsAllDay() bool {
	return t.DateTime == "" || timezone.IsDateOnly(t.DateTime)
}

// UnmarshalJSON accepts {"dateTime": ...}, {"date": ...} or a plain string.
// A plain string without a time of day is treated as a date.
func (t *EventTime) UnmarshalJSON(data []byte) error {
	*t = EventTime{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if strings.ContainsAny(s, "T ") {
			t.DateTime = s
		} else {
			t.Date = s
		}
	case '{':
		var obj struct {
			DateTime json.RawMessage `json:"dateTime"`
			Date     json.RawMessage `json:"date"`
			TimeZone json.RawMessage `json:"timeZone"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil
		}
		t.DateTime = stringOf(obj.DateTime)
		t.Date = stringOf(obj.Date)
		t.TimeZone = stringOf(obj.TimeZone)
	}
	return nil
}

// stringOf returns raw as a trimmed string if it is a JSON string, else "".
func stringOf(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// looseString decodes strings and numbers; anything else becomes "".
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch {
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err == nil {
			*s = looseString(v)
		}
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*s = looseString(n.String())
		}
	}
	return nil
}

// looseBool decodes booleans and the strings "true"/"false"/"1"/"0".
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	*b = false
	data = bytes.TrimSpace(data)
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = looseBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			*b = looseBool(parsed)
		}
	}
	return nil
}

// DecodeRawEvents decodes a JSON array of events. Elements that are not
// objects are dropped; a body that is not an array yields no events.
func DecodeRawEvents(data []byte) []RawEvent {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	events := make([]RawEvent, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var ev RawEvent
		if err := json.Unmarshal(item, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}
