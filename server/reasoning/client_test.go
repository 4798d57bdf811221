package reasoning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/shikhar-s-7/sara-scheduler-ui/server/internal/errors"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/service/calendar"
)

var conversation = []Message{
	{Role: RoleAssistant, Content: "Hello, I'm Sara."},
	{Role: RoleUser, Content: "Move my 3pm to Friday"},
}

func TestChatForwardsFullConversation(t *testing.T) {
	var got chatPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"response":"Moved to Friday 3pm.","events":[1,2]}`)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/"})
	body, err := client.Chat(context.Background(), ChatRequest{Messages: conversation, UserToken: "ya29.token"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"response":"Moved to Friday 3pm.","events":[1,2]}`, string(body))
	assert.Equal(t, conversation, got.Messages)
	assert.Equal(t, "ya29.token", got.UserToken)
	assert.Equal(t, "Asia/Kolkata", got.Timezone)
}

func TestChatUsesCallerTimezone(t *testing.T) {
	var got chatPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"response":"ok"}`)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, DefaultTimezone: "UTC"})
	_, err := client.Chat(context.Background(), ChatRequest{Messages: conversation, UserToken: "t", Timezone: "Europe/Paris"})
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", got.Timezone)

	_, err = client.Chat(context.Background(), ChatRequest{Messages: conversation, UserToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", got.Timezone)
}

func TestChatRejectsBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()
	client := NewClient(Config{BaseURL: server.URL})

	_, err := client.Chat(context.Background(), ChatRequest{Messages: conversation})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUnauthenticated))

	_, err = client.Chat(context.Background(), ChatRequest{UserToken: "t"})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeBadRequest))

	_, err = client.Chat(context.Background(), ChatRequest{Messages: conversation, UserToken: "t", Timezone: "Mars/Olympus"})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeBadRequest))

	assert.Equal(t, int32(0), calls.Load())
}

func TestChatNonSuccessIsUpstreamUnavailable(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = io.WriteString(w, `{"detail":"Traceback (most recent call last): secret"}`)
			}))
			defer server.Close()

			body, err := NewClient(Config{BaseURL: server.URL}).Chat(context.Background(), ChatRequest{Messages: conversation, UserToken: "t"})
			assert.Nil(t, body)
			require.True(t, apierrors.IsCode(err, apierrors.ErrCodeUpstreamUnavailable), "got %v", err)

			apiErr := apierrors.From(err)
			assert.Equal(t, "The AI server had trouble processing your request.", apiErr.PublicMessage())
			assert.NotContains(t, apiErr.Error(), "secret")
			assert.Equal(t, status, apiErr.Context["upstream_status"])
		})
	}
}

func TestChatInvalidJSONIsUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>tunnel offline</html>`)
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).Chat(context.Background(), ChatRequest{Messages: conversation, UserToken: "t"})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUpstreamUnavailable))
}

func TestChatUnreachableIsUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(Config{BaseURL: url}).Chat(context.Background(), ChatRequest{Messages: conversation, UserToken: "t"})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUpstreamUnavailable))
}

func TestChatTimeoutCancelsInFlightCall(t *testing.T) {
	var calls atomic.Int32
	aborted := make(chan struct{})
	release := make(chan struct{})
	var wroteAfterAbort atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
			close(aborted)
		case <-release:
		}
		if r.Context().Err() == nil {
			wroteAfterAbort.Store(true)
			_, _ = io.WriteString(w, `{"response":"late"}`)
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{BaseURL: server.URL, ChatTimeout: 50 * time.Millisecond})
	assert.Equal(t, 50*time.Millisecond, client.ChatTimeout())

	start := time.Now()
	body, err := client.Chat(context.Background(), ChatRequest{Messages: conversation, UserToken: "t"})
	elapsed := time.Since(start)

	assert.Nil(t, body)
	require.True(t, apierrors.IsCode(err, apierrors.ErrCodeTimeout), "got %v", err)
	assert.Equal(t, "Request timed out.", apierrors.From(err).PublicMessage())
	assert.Less(t, elapsed, 5*time.Second)

	select {
	case <-aborted:
	case <-time.After(5 * time.Second):
		t.Fatal("backend never observed the cancellation")
	}
	assert.False(t, wroteAfterAbort.Load())
	assert.Equal(t, int32(1), calls.Load(), "timeouts must not be retried")
}

func TestChatCallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewClient(Config{BaseURL: server.URL}).Chat(ctx, ChatRequest{Messages: conversation, UserToken: "t"})
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeCanceled), "got %v", err)
}

func TestUpcoming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/events/upcoming", r.URL.Path)
		assert.Equal(t, "tok en&x", r.URL.Query().Get("user_token"))
		_, _ = io.WriteString(w, `{"upcoming":[
			{"id":"1","title":"Review","start_time":"2025-06-01T09:00:00Z","date_label":"Today","is_urgent":true},
			{"id":"2","title":null,"start_time":"2025-06-02"}
		]}`)
	}))
	defer server.Close()

	events, err := NewClient(Config{BaseURL: server.URL}).Upcoming(context.Background(), "tok en&x")
	require.NoError(t, err)
	require.Len(t, events, 2)

	normalized := calendar.Normalize(events, calendar.Options{Mode: calendar.ModeUpcoming})
	assert.Equal(t, "Review", normalized[0].Title)
	assert.True(t, normalized[0].IsUrgent)
	assert.Equal(t, calendar.NoTitle, normalized[1].Title)
	assert.True(t, normalized[1].AllDay)
}

func TestUpcomingFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   apierrors.ErrorCode
	}{
		{"non-success", http.StatusBadGateway, `{}`, apierrors.ErrCodeUpstreamUnavailable},
		{"array body", http.StatusOK, `[]`, apierrors.ErrCodeUpstreamUnavailable},
		{"not json", http.StatusOK, `nope`, apierrors.ErrCodeUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(Config{BaseURL: server.URL}).Upcoming(context.Background(), "t")
			assert.True(t, apierrors.IsCode(err, tt.code), "got %v", err)
		})
	}

	_, err := NewClient(Config{BaseURL: "http://127.0.0.1:1"}).Upcoming(context.Background(), "")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUnauthenticated))
}

func TestUpcomingMissingListIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"nothing"}`)
	}))
	defer server.Close()

	events, err := NewClient(Config{BaseURL: server.URL}).Upcoming(context.Background(), "t")
	require.NoError(t, err)
	assert.Empty(t, events)
}
