package v1

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shikhar-s-7/sara-scheduler-ui/internal/profile"
	"github.com/shikhar-s-7/sara-scheduler-ui/plugin/idp"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/auth"
	apierrors "github.com/shikhar-s-7/sara-scheduler-ui/server/internal/errors"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/internal/observability"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/reasoning"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/service/calendar"
)

// Route names used for logging and metrics.
const (
	RouteAuthStatus     = "auth.status"
	RouteAuthLogin      = "auth.login"
	RouteAuthCallback   = "auth.callback"
	RouteAuthLogout     = "auth.logout"
	RouteQueryProcess   = "query.process"
	RouteEventsUpcoming = "events.upcoming"
	RouteCalendarEvents = "calendar.events"
	RouteSystemMetrics  = "system.metrics"
)

// IdentityProvider runs the OAuth2 login flow.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*idp.Identity, error)
}

// ReasoningBackend is the remote chat backend.
type ReasoningBackend interface {
	Chat(ctx context.Context, req reasoning.ChatRequest) (json.RawMessage, error)
	Upcoming(ctx context.Context, userToken string) ([]calendar.RawEvent, error)
}

// CalendarReader lists the user's calendar events.
type CalendarReader interface {
	ListEvents(ctx context.Context, accessToken string, from, to time.Time) ([]calendar.RawEvent, error)
}

type APIV1Service struct {
	Profile *profile.Profile
	Codec   *auth.Codec
	Guard   *auth.Guard
	// IdentityProvider is nil when OAuth is not configured.
	IdentityProvider IdentityProvider
	Reasoning        ReasoningBackend
	Calendar         CalendarReader
	Metrics          *observability.Metrics

	now             func() time.Time
	calendarTimeout time.Duration
}

func NewAPIV1Service(profile *profile.Profile, codec *auth.Codec, provider IdentityProvider, backend ReasoningBackend, reader CalendarReader, metrics *observability.Metrics) *APIV1Service {
	if metrics == nil {
		metrics = observability.NewMetrics(0)
	}
	return &APIV1Service{
		Profile:          profile,
		Codec:            codec,
		Guard:            auth.NewGuard(codec),
		IdentityProvider: provider,
		Reasoning:        backend,
		Calendar:         reader,
		Metrics:          metrics,
		now:              time.Now,
		calendarTimeout:  reasoning.CalendarTimeout,
	}
}

// RegisterRoutes mounts the public API on echoServer. Session-bound routes
// run the guard before the handler.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	requireSession := s.Guard.RequireSession(func(_ echo.Context, _ error) error {
		return apierrors.Unauthenticated("no valid session")
	})

	api := echoServer.Group("/api")
	api.GET("/auth/status", s.GetAuthStatus, s.observe(RouteAuthStatus))
	api.GET("/auth/google", s.BeginLogin, s.observe(RouteAuthLogin))
	api.GET("/auth/callback", s.CompleteLogin, s.observe(RouteAuthCallback))
	api.POST("/auth/logout", s.Logout, s.observe(RouteAuthLogout))

	api.POST("/query/process", s.ProcessQuery, s.observe(RouteQueryProcess), requireSession)
	api.GET("/events", s.ListUpcomingEvents, s.observe(RouteEventsUpcoming), requireSession)
	api.GET("/calendar/events", s.ListCalendarEvents, s.observe(RouteCalendarEvents), requireSession)

	api.GET("/system/metrics", s.GetMetricsOverview)
}

// observe attaches a RequestContext to the request, records metrics and
// renders any error the chain returns.
func (s *APIV1Service) observe(route string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			reqCtx := observability.NewRequestContextWithID(slog.Default(), requestID, route, "")
			req := c.Request()
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))

			s.Metrics.RecordRequest(route)
			err := next(c)
			if principal, ok := auth.PrincipalFrom(c); ok {
				reqCtx.Identity = principal.Identity
			}
			s.Metrics.RecordDuration(route, reqCtx.Duration())

			if err == nil {
				reqCtx.Debug("request served", slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
				return nil
			}
			return s.renderError(c, reqCtx, err)
		}
	}
}

// renderError writes the fixed public body for err.
func (s *APIV1Service) renderError(c echo.Context, reqCtx *observability.RequestContext, err error) error {
	apiErr := toAPIError(err)
	s.Metrics.RecordFailure(reqCtx.Route, string(apiErr.Code))

	attrs := []slog.Attr{
		slog.String(observability.LogFieldErrorCode, string(apiErr.Code)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	}
	if status, ok := apiErr.Context["upstream_status"].(int); ok {
		attrs = append(attrs, slog.Int(observability.LogFieldUpstreamStatus, status))
	}
	switch apiErr.Code {
	case apierrors.ErrCodeInternal:
		reqCtx.Error("request failed", apiErr, attrs...)
	case apierrors.ErrCodeUnauthenticated, apierrors.ErrCodeBadRequest, apierrors.ErrCodeCanceled:
		reqCtx.Info("request rejected", append(attrs, slog.String("reason", apiErr.Message))...)
	default:
		reqCtx.Warn("request failed", append(attrs, slog.String("error", apiErr.Error()))...)
	}

	if c.Response().Committed {
		return nil
	}
	return c.JSON(apiErr.HTTPStatus(), errorResponse{Success: false, Message: apiErr.PublicMessage()})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// toAPIError classifies err; echo's own errors keep their status class.
func toAPIError(err error) *apierrors.APIError {
	if he, ok := err.(*echo.HTTPError); ok {
		switch {
		case he.Code == http.StatusUnauthorized:
			return apierrors.Unauthenticated("echo rejected request")
		case he.Code == http.StatusTooManyRequests:
			return apierrors.RateLimitExceeded("echo rejected request")
		case he.Code >= 400 && he.Code < 500:
			return apierrors.BadRequest(http.StatusText(he.Code))
		default:
			return apierrors.Internal("echo error", he)
		}
	}
	return apierrors.From(err)
}

func requestContext(c echo.Context) *observability.RequestContext {
	if reqCtx, ok := observability.FromContext(c.Request().Context()); ok {
		return reqCtx
	}
	return observability.NewRequestContext(slog.Default(), c.Path(), "")
}
