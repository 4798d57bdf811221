// Package server assembles the HTTP server: edge middleware, the public API
// and its collaborators.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shikhar-s-7/sara-scheduler-ui/internal/profile"
	"github.com/shikhar-s-7/sara-scheduler-ui/plugin/gcal"
	"github.com/shikhar-s-7/sara-scheduler-ui/plugin/idp"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/auth"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/internal/observability"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/middleware"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/reasoning"
	apiv1 "github.com/shikhar-s-7/sara-scheduler-ui/server/router/api/v1"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
	// writeSlack is added to the chat budget so the timeout body can still be written.
	writeSlack    = 30 * time.Second
	pruneInterval = time.Minute
)

type Server struct {
	Profile *profile.Profile

	echoServer  *echo.Echo
	httpServer  *http.Server
	rateLimiter *middleware.RateLimiter
	apiV1       *apiv1.APIV1Service
}

func NewServer(profile *profile.Profile) (*Server, error) {
	codec, err := auth.NewCodec(profile.Secret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session codec")
	}

	var provider apiv1.IdentityProvider
	if profile.IsOAuthConfigured() {
		google, err := idp.NewGoogleProvider(idp.Config{
			ClientID:     profile.GoogleClientID,
			ClientSecret: profile.GoogleClientSecret,
			RedirectURI:  profile.GoogleRedirectURI,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create identity provider")
		}
		provider = google
	} else {
		slog.Warn("google oauth client is not configured, login is disabled")
	}

	backend := reasoning.NewClient(reasoning.Config{
		BaseURL:         profile.BackendURL,
		DefaultTimezone: profile.DefaultTimezone,
		ChatTimeout:     profile.ChatTimeout,
	})

	metrics := observability.NewMetrics(0)
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		observability.NewCollector(metrics),
	)

	s := &Server{
		Profile:     profile,
		echoServer:  echo.New(),
		rateLimiter: middleware.NewRateLimiter(middleware.DefaultRateLimitConfig),
		apiV1:       apiv1.NewAPIV1Service(profile, codec, provider, backend, gcal.NewClient(""), metrics),
	}

	e := s.echoServer
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			slog.Info("request",
				slog.String(observability.LogFieldRequestID, v.RequestID),
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.Int64(observability.LogFieldDuration, v.Latency.Milliseconds()))
			return nil
		},
	}))
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	e.Use(echomiddleware.BodyLimit("2M"))
	e.Use(s.rateLimiter.Middleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	s.apiV1.RegisterRoutes(e)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(profile.Addr, fmt.Sprint(profile.Port)),
		Handler:           e,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      profile.ChatTimeout + writeSlack,
		IdleTimeout:       idleTimeout,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start serves until the listener fails or Shutdown is called. Background
// work stops when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.httpServer.Addr)
	}
	go s.rateLimiter.RunPruner(ctx, pruneInterval)

	slog.Info("server listening", slog.String("addr", listener.Addr().String()), slog.String("mode", s.Profile.Mode))
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server stopped")
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to shutdown server")
	}
	return nil
}
