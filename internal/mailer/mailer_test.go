package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("RecruiterHub", "noreply@recruiterhub.dev",
		"alice@example.com", "Password reset token", "You requested a reset."))

	assert.True(t, strings.HasPrefix(msg, "From: RecruiterHub <noreply@recruiterhub.dev>\r\n"))
	assert.Contains(t, msg, "To: alice@example.com\r\n")
	assert.Contains(t, msg, "Subject: Password reset token\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nYou requested a reset."))
}
