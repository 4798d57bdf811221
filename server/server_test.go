package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikhar-s-7/sara-scheduler-ui/internal/profile"
)

func newTestProfile() *profile.Profile {
	p := &profile.Profile{
		Mode:       "dev",
		Addr:       "127.0.0.1",
		Port:       0,
		Secret:     "server-test-secret",
		BackendURL: "http://127.0.0.1:1",
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}

func TestHealthz(t *testing.T) {
	s, err := NewServer(newTestProfile())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Service ready.", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestProtectedRouteWithoutSession(t *testing.T) {
	s, err := NewServer(newTestProfile())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/query/process", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not authenticated"}`, rec.Body.String())
}

func TestLoginDisabledWithoutOAuth(t *testing.T) {
	s, err := NewServer(newTestProfile())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteTimeoutCoversChatBudget(t *testing.T) {
	p := newTestProfile()
	s, err := NewServer(p)
	require.NoError(t, err)
	assert.Greater(t, s.httpServer.WriteTimeout, p.ChatTimeout)
}

func TestStartAndShutdown(t *testing.T) {
	s, err := NewServer(newTestProfile())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	// Give the listener a moment; Shutdown before Serve is also safe.
	time.Sleep(50 * time.Millisecond)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	require.NoError(t, s.Shutdown(shutdownCtx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	s, err := NewServer(newTestProfile())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query/process", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sara_http_request_errors_total{code="UNAUTHENTICATED",route="query.process"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
