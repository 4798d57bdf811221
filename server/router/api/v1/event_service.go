package v1

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shikhar-s-7/sara-scheduler-ui/plugin/gcal"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/auth"
	apierrors "github.com/shikhar-s-7/sara-scheduler-ui/server/internal/errors"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/service/calendar"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/timezone"
)

// UpcomingEventsResponse is the body of GET /api/events.
type UpcomingEventsResponse struct {
	Upcoming []calendar.Event `json:"upcoming"`
}

// CalendarEventsResponse is the body of GET /api/calendar/events.
type CalendarEventsResponse struct {
	Events []calendar.Event `json:"events"`
}

// ListUpcomingEvents returns the backend's upcoming events, grouped by day.
// A backend failure yields an empty list so the sidebar keeps rendering.
// GET /api/events?timezone=<IANA>
func (s *APIV1Service) ListUpcomingEvents(c echo.Context) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apierrors.Unauthenticated("no principal")
	}
	loc, err := s.callerLocation(c)
	if err != nil {
		return err
	}

	raw, err := s.Reasoning.Upcoming(c.Request().Context(), principal.Token)
	if err != nil {
		apiErr := apierrors.From(err)
		if apiErr.Code == apierrors.ErrCodeCanceled {
			return apiErr
		}
		requestContext(c).Warn("upcoming events unavailable, returning empty list",
			slog.String("error_code", string(apiErr.Code)))
		return c.JSON(http.StatusOK, UpcomingEventsResponse{Upcoming: []calendar.Event{}})
	}

	return c.JSON(http.StatusOK, UpcomingEventsResponse{
		Upcoming: calendar.Normalize(raw, calendar.Options{Mode: calendar.ModeUpcoming, Location: loc}),
	})
}

// ListCalendarEvents returns the next week of the user's primary calendar.
// The listing runs under its own budget, shorter than the chat budget.
// GET /api/calendar/events
func (s *APIV1Service) ListCalendarEvents(c echo.Context) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apierrors.Unauthenticated("no principal")
	}
	if s.Calendar == nil {
		return apierrors.Internal("calendar reader is not configured", nil)
	}

	accessToken := principal.Session.Credential.AccessToken
	if accessToken == "" {
		return apierrors.Unauthenticated("session has no access token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.calendarTimeout)
	defer cancel()

	from := s.now()
	raw, err := s.Calendar.ListEvents(ctx, accessToken, from, from.Add(gcal.DefaultWindow))
	if err != nil {
		if stderrors.Is(err, gcal.ErrUnauthorized) {
			return apierrors.Unauthenticated("calendar rejected access token")
		}
		if c.Request().Context().Err() != nil {
			return apierrors.Canceled(err)
		}
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return apierrors.Timeout("calendar listing exceeded its budget", err)
		}
		return apierrors.UpstreamUnavailable("failed to fetch calendar events", err)
	}

	return c.JSON(http.StatusOK, CalendarEventsResponse{
		Events: calendar.Normalize(raw, calendar.Options{Mode: calendar.ModeEmbed}),
	})
}

// callerLocation resolves the zone used for day labels: the timezone query
// parameter when present, else the configured default.
func (s *APIV1Service) callerLocation(c echo.Context) (*time.Location, error) {
	name := strings.TrimSpace(c.QueryParam("timezone"))
	if name == "" {
		name = s.Profile.DefaultTimezone
	}
	loc, err := timezone.ParseTimezone(name)
	if err != nil {
		return nil, apierrors.BadRequest("Unknown timezone")
	}
	return loc, nil
}
