package mailer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmyoutings/backend/config"
)

func TestBuildMessage(t *testing.T) {
	s := NewSMTPSender(config.EmailConfig{FromAddress: "noreply@example.com", FromName: "Plan My Outings"}, nil)
	m, err := s.build(Message{To: "alice@example.com", Subject: "Hello", Body: "Body text"})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Hello")
	assert.Contains(t, raw, "<alice@example.com>")
	assert.Contains(t, raw, `"Plan My Outings" <noreply@example.com>`)
	assert.Contains(t, raw, "Body text")
}

func TestBuildRejectsBadRecipient(t *testing.T) {
	s := NewSMTPSender(config.EmailConfig{FromAddress: "noreply@example.com"}, nil)
	_, err := s.build(Message{To: "not an address", Subject: "x", Body: "y"})
	assert.Error(t, err)
}

func TestSendWithoutHostFails(t *testing.T) {
	s := NewSMTPSender(config.EmailConfig{FromAddress: "noreply@example.com"}, nil)
	assert.False(t, s.Configured())
	assert.Error(t, s.Send(context.Background(), Message{To: "a@example.com", Subject: "x", Body: "y"}))
}
