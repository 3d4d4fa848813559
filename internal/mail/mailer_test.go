// Package mail tests verify message assembly shared by both transports.
package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFormatMessage verifies the header block both transports emit: Subject,
// To, From, then a blank line before the body. sendmail -t parses the To
// header for the recipient, so header shape is load-bearing.
func TestFormatMessage(t *testing.T) {
	msg := formatMessage("alice@example.com", "noreply@travel.example.com", "Welcome", "Hello Alice,\n\nWelcome aboard.")

	lines := strings.Split(msg, "\r\n")
	assert.Equal(t, "Subject: Welcome", lines[0])
	assert.Equal(t, "To: alice@example.com", lines[1])
	assert.Equal(t, "From: noreply@travel.example.com", lines[2])
	assert.Equal(t, "", lines[3], "Blank line separates headers from body")
	assert.True(t, strings.HasSuffix(msg, "Welcome aboard."), "Body follows unchanged")
}

// TestRelayHost verifies the auth host is the relay address without its port.
func TestRelayHost(t *testing.T) {
	assert.Equal(t, "smtp.gmail.com", relayHost("smtp.gmail.com:587"))
	assert.Equal(t, "smtp.gmail.com", relayHost("smtp.gmail.com"))
}
