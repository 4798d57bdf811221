package reasoning

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/shikhar-s-7/sara-scheduler-ui/server/internal/errors"
)

func decodeInbound(t *testing.T, body string) []InboundMessage {
	t.Helper()
	var in []InboundMessage
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	return in
}

func TestNormalizeMessagesPrecedence(t *testing.T) {
	got, err := NormalizeMessages(decodeInbound(t, `[
		{"role":"assistant","text":"Hello, I'm Sara."},
		{"role":"user","content":"Book lunch","text":"ignored"},
		{"role":"user","content":"","text":"fallback to text"},
		{"role":"User","content":"case-insensitive role"}
	]`))
	require.NoError(t, err)

	assert.Equal(t, []Message{
		{Role: RoleAssistant, Content: "Hello, I'm Sara."},
		{Role: RoleUser, Content: "Book lunch"},
		{Role: RoleUser, Content: "fallback to text"},
		{Role: RoleUser, Content: "case-insensitive role"},
	}, got)
}

func TestNormalizeMessagesRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty conversation", `[]`},
		{"no body", `[{"role":"user"}]`},
		{"blank body", `[{"role":"user","content":"  ","text":""}]`},
		{"system role", `[{"role":"system","content":"you are"}]`},
		{"missing role", `[{"content":"hi"}]`},
		{"second message bad", `[{"role":"user","content":"hi"},{"role":"tool","content":"x"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeMessages(decodeInbound(t, tt.body))
			assert.Nil(t, got)
			assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeBadRequest), "got %v", err)
		})
	}
}

func TestNormalizeMessagesTooMany(t *testing.T) {
	text := "hi"
	in := make([]InboundMessage, MaxMessages+1)
	for i := range in {
		in[i] = InboundMessage{Role: "user", Text: &text}
	}
	_, err := NormalizeMessages(in)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeBadRequest))
}

func TestInboundMessageBody(t *testing.T) {
	c, x := "content", "text"
	empty := ""
	assert.Equal(t, "content", InboundMessage{Content: &c, Text: &x}.Body())
	assert.Equal(t, "text", InboundMessage{Content: &empty, Text: &x}.Body())
	assert.Equal(t, "text", InboundMessage{Text: &x}.Body())
	assert.Equal(t, "", InboundMessage{}.Body())
}
