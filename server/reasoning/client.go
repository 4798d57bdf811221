// Package reasoning forwards conversations to the remote reasoning backend
// and reads the upcoming events it keeps for a user.
//
// Every network fault is classified before it leaves this package: callers
// only ever see the error codes of server/internal/errors.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apierrors "github.com/shikhar-s-7/sara-scheduler-ui/server/internal/errors"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/service/calendar"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/timezone"
)

const (
	chatPath     = "/chat"
	upcomingPath = "/events/upcoming"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "https://nlp.example.com".
	BaseURL string
	// DefaultTimezone is sent when the caller reports none.
	DefaultTimezone string
	// ChatTimeout overrides ChatTimeout when positive.
	ChatTimeout time.Duration
	// UpcomingTimeout overrides UpcomingTimeout when positive.
	UpcomingTimeout time.Duration
	// HTTPClient overrides the default client. Its Timeout should be zero;
	// budgets are enforced through the request context.
	HTTPClient *http.Client
}

// Client talks to the reasoning backend. It holds no per-user state and is
// safe for concurrent use.
type Client struct {
	baseURL         string
	defaultTimezone string
	chatTimeout     time.Duration
	upcomingTimeout time.Duration
	http            *http.Client
}

// ChatRequest is one send-message call.
type ChatRequest struct {
	Messages  []Message
	Timezone  string
	UserToken string
}

type chatPayload struct {
	Messages  []Message `json:"messages"`
	UserToken string    `json:"user_token"`
	Timezone  string    `json:"timezone"`
}

// NewClient creates a backend client.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		defaultTimezone: cfg.DefaultTimezone,
		chatTimeout:     ChatTimeout,
		upcomingTimeout: UpcomingTimeout,
		http:            cfg.HTTPClient,
	}
	if c.defaultTimezone == "" {
		c.defaultTimezone = "Asia/Kolkata"
	}
	if cfg.ChatTimeout > 0 {
		c.chatTimeout = cfg.ChatTimeout
	}
	if cfg.UpcomingTimeout > 0 {
		c.upcomingTimeout = cfg.UpcomingTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

// ChatTimeout returns the budget applied to Chat.
func (c *Client) ChatTimeout() time.Duration {
	return c.chatTimeout
}

// Chat forwards the full conversation and returns the backend's JSON body
// verbatim. The call is attempted once; on budget expiry the in-flight
// request is aborted and a Timeout error is returned.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (json.RawMessage, error) {
	if req.UserToken == "" {
		return nil, apierrors.Unauthenticated("missing upstream credential")
	}
	if len(req.Messages) == 0 {
		return nil, apierrors.BadRequest("messages must not be empty")
	}
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = c.defaultTimezone
	}
	if !timezone.IsValidTimezone(tz) {
		return nil, apierrors.BadRequest(fmt.Sprintf("unknown timezone %q", tz))
	}

	body, err := json.Marshal(chatPayload{Messages: req.Messages, UserToken: req.UserToken, Timezone: tz})
	if err != nil {
		return nil, apierrors.Internal("failed to encode chat payload", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.chatTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, apierrors.Internal("failed to build chat request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	return c.do(ctx, callCtx, httpReq)
}

// Upcoming returns the raw upcoming events the backend holds for the user.
func (c *Client) Upcoming(ctx context.Context, userToken string) ([]calendar.RawEvent, error) {
	if userToken == "" {
		return nil, apierrors.Unauthenticated("missing upstream credential")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.upcomingTimeout)
	defer cancel()

	u := c.baseURL + upcomingPath + "?" + url.Values{"user_token": {userToken}}.Encode()
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apierrors.Internal("failed to build upcoming request", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	raw, err := c.do(ctx, callCtx, httpReq)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Upcoming json.RawMessage `json:"upcoming"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apierrors.UpstreamUnavailable("upcoming body is not an object", err)
	}
	return calendar.DecodeRawEvents(envelope.Upcoming), nil
}

// do issues req and classifies the outcome. parent is the caller's context,
// callCtx the budgeted one req was built with.
func (c *Client) do(parent, callCtx context.Context, req *http.Request) (json.RawMessage, error) {
	path := req.URL.Path
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(parent, callCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The body is not trusted and not logged; drain a bounded amount so
		// the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		slog.Warn("reasoning backend returned non-success status",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode))
		return nil, apierrors.UpstreamUnavailable(fmt.Sprintf("backend returned %d", resp.StatusCode), nil).
			WithContext("upstream_status", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, classify(parent, callCtx, err)
	}
	if len(data) > MaxResponseBytes {
		return nil, apierrors.UpstreamUnavailable("backend response too large", nil)
	}
	if !json.Valid(data) {
		return nil, apierrors.UpstreamUnavailable("backend response is not JSON", nil)
	}
	return json.RawMessage(data), nil
}

// classify maps a transport error onto the failure taxonomy.
func classify(parent, callCtx context.Context, err error) error {
	if perr := parent.Err(); perr != nil {
		if stderrors.Is(perr, context.DeadlineExceeded) {
			return apierrors.Timeout("caller deadline exceeded", err)
		}
		return apierrors.Canceled(err)
	}
	if stderrors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return apierrors.Timeout("backend budget exceeded", err)
	}
	return apierrors.UpstreamUnavailable("backend request failed", err)
}
