// Package gcal reads events from a user's primary Google Calendar.
package gcal

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	calendarv3 "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/shikhar-s-7/sara-scheduler-ui/server/service/calendar"
)

const (
	// DefaultWindow is how far ahead ListEvents looks by default.
	DefaultWindow = 7 * 24 * time.Hour
	// MaxResults caps one listing.
	MaxResults = 50

	primaryCalendar = "primary"
)

// ErrUnauthorized is returned when Google rejects the access token.
var ErrUnauthorized = errors.New("calendar access token rejected")

// Client lists calendar events with a caller-supplied access token.
type Client struct {
	// endpoint overrides the Calendar API base path; empty targets Google.
	endpoint string
	options  []option.ClientOption
}

// NewClient creates a client. Extra options are appended to every service,
// after the per-call token source.
func NewClient(endpoint string, opts ...option.ClientOption) *Client {
	return &Client{endpoint: endpoint, options: opts}
}

// ListEvents returns the expanded single events of the primary calendar
// between from and to, ordered by start time.
func (c *Client) ListEvents(ctx context.Context, accessToken string, from, to time.Time) ([]calendar.RawEvent, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	if !to.After(from) {
		return nil, errors.Errorf("invalid window %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	events, err := svc.Events.List(primaryCalendar).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(MaxResults).
		Context(ctx).
		Do()
	if err != nil {
		if isUnauthorized(err) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, "failed to list events")
	}

	raw := make([]calendar.RawEvent, 0, len(events.Items))
	for _, item := range events.Items {
		if item == nil {
			continue
		}
		raw = append(raw, calendar.NewProviderEvent(item.Id, item.Summary, item.Status, eventTime(item.Start), eventTime(item.End)))
	}
	return raw, nil
}

func (c *Client) service(ctx context.Context, accessToken string) (*calendarv3.Service, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})),
	}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	opts = append(opts, c.options...)

	svc, err := calendarv3.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create calendar service")
	}
	return svc, nil
}

func eventTime(t *calendarv3.EventDateTime) calendar.EventTime {
	if t == nil {
		return calendar.EventTime{}
	}
	return calendar.EventTime{DateTime: t.DateTime, Date: t.Date, TimeZone: t.TimeZone}
}

func isUnauthorized(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
}
