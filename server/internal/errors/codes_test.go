package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeUnauthenticated, http.StatusUnauthorized},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeCanceled, StatusClientClosedRequest},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestPublicMessageHidesCause(t *testing.T) {
	err := UpstreamUnavailable("backend returned 500", fmt.Errorf("stack trace: secret"))
	assert.Equal(t, "The AI server had trouble processing your request.", err.PublicMessage())
	assert.NotContains(t, err.PublicMessage(), "secret")

	timeout := Timeout("budget exceeded", context.DeadlineExceeded)
	assert.Equal(t, "Request timed out.", timeout.PublicMessage())
	assert.NotEqual(t, err.HTTPStatus(), timeout.HTTPStatus())
}

func TestPublicMessageBadRequestKeepsMessage(t *testing.T) {
	assert.Equal(t, "messages must be an array", BadRequest("messages must be an array").PublicMessage())
	assert.Equal(t, "Invalid request", BadRequest("").PublicMessage())
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", Timeout("slow", nil))

	assert.True(t, IsCode(err, ErrCodeTimeout))
	assert.False(t, IsCode(err, ErrCodeUpstreamUnavailable))
	assert.Equal(t, ErrCodeTimeout, GetCodeFromError(err, ErrCodeInternal))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(stderrors.New("plain"), ErrCodeInternal))
}

func TestFrom(t *testing.T) {
	plain := stderrors.New("boom")
	got := From(plain)
	assert.Equal(t, ErrCodeInternal, got.Code)
	assert.ErrorIs(t, got, plain)

	bad := BadRequest("nope")
	assert.Same(t, bad, From(bad))
}

func TestWithContext(t *testing.T) {
	err := Internal("x", nil).WithContext("route", "/api/events")
	assert.Equal(t, "/api/events", err.Context["route"])
	assert.Equal(t, "[INTERNAL] x", err.Error())
}
