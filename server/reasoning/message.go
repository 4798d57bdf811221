package reasoning

import (
	"fmt"
	"strings"

	apierrors "github.com/shikhar-s-7/sara-scheduler-ui/server/internal/errors"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// InboundMessage is a message as the browser sends it. Older clients put
// the body in Text instead of Content.
type InboundMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content,omitempty"`
	Text    *string `json:"text,omitempty"`
}

// Message is the normalized message forwarded upstream.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Body returns content, else text, else "".
func (m InboundMessage) Body() string {
	if m.Content != nil && *m.Content != "" {
		return *m.Content
	}
	if m.Text != nil {
		return *m.Text
	}
	return ""
}

// NormalizeMessages validates an inbound conversation and maps it to the
// upstream shape. Order is preserved; the full history is kept.
func NormalizeMessages(in []InboundMessage) ([]Message, error) {
	if len(in) == 0 {
		return nil, apierrors.BadRequest("messages must not be empty")
	}
	if len(in) > MaxMessages {
		return nil, apierrors.BadRequest(fmt.Sprintf("too many messages (max %d)", MaxMessages))
	}

	out := make([]Message, 0, len(in))
	for i, m := range in {
		role := Role(strings.ToLower(strings.TrimSpace(m.Role)))
		if role != RoleUser && role != RoleAssistant {
			return nil, apierrors.BadRequest(fmt.Sprintf("message %d: role must be user or assistant", i))
		}
		body := m.Body()
		if strings.TrimSpace(body) == "" {
			return nil, apierrors.BadRequest(fmt.Sprintf("message %d: content is empty", i))
		}
		out = append(out, Message{Role: role, Content: body})
	}
	return out, nil
}
