package v1

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shikhar-s-7/sara-scheduler-ui/server/auth"
	apierrors "github.com/shikhar-s-7/sara-scheduler-ui/server/internal/errors"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/internal/observability"
	"github.com/shikhar-s-7/sara-scheduler-ui/server/reasoning"
)

const maxChatBodyBytes = 1 << 20

type processQueryRequest struct {
	Messages json.RawMessage `json:"messages"`
	Timezone string          `json:"timezone"`
}

// ProcessQuery forwards the conversation to the reasoning backend and
// returns its body unchanged.
// POST /api/query/process
func (s *APIV1Service) ProcessQuery(c echo.Context) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apierrors.Unauthenticated("no principal")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxChatBodyBytes+1))
	if err != nil {
		return apierrors.BadRequest("Unable to read request body")
	}
	if len(body) > maxChatBodyBytes {
		return apierrors.BadRequest("Request body too large")
	}

	var req processQueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apierrors.BadRequest("Invalid JSON body")
	}
	trimmed := bytes.TrimSpace(req.Messages)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return apierrors.BadRequest("messages must be an array")
	}
	var inbound []reasoning.InboundMessage
	if err := json.Unmarshal(trimmed, &inbound); err != nil {
		return apierrors.BadRequest("messages must be an array of {role, content}")
	}

	messages, err := reasoning.NormalizeMessages(inbound)
	if err != nil {
		return err
	}

	reqCtx := requestContext(c)
	reqCtx.Info("forwarding conversation", slog.Int(observability.LogFieldMessageCount, len(messages)))

	result, err := s.Reasoning.Chat(c.Request().Context(), reasoning.ChatRequest{
		Messages:  messages,
		Timezone:  req.Timezone,
		UserToken: principal.Token,
	})
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, result)
}
