package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Banner("TrueTicket Remote Deployment")

	want := strings.Repeat("=", 50) + "\nTrueTicket Remote Deployment\n" + strings.Repeat("=", 50) + "\n"
	assert.Equal(t, want, buf.String())
}

func TestConnecting(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Connecting("66.135.29.248")
	w.Connected()

	assert.Equal(t, "\nConnecting to 66.135.29.248...\nConnected successfully!\n\n", buf.String())
}

func TestAnnounce(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Announce("docker compose up -d")

	assert.Equal(t, "\n>>> docker compose up -d\n", buf.String())
}

func TestLine_ReplacesInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Line("status ok")
	w.Line("broken \xff\xfe output")

	assert.Equal(t, "status ok\nbroken ? output\n", buf.String())
}

func TestStderr(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Stderr("permission denied\n")

	assert.Equal(t, "STDERR: permission denied\n\n", buf.String())
}

func TestWarning(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Warning(127)

	assert.Equal(t, "\nWarning: Command exited with status 127\n", buf.String())
}

func TestCompleted(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Completed(
		[]string{"https://trueticket.me", "https://www.trueticket.me"},
		"Note: SSL certificate provisioning may take a few minutes.",
	)

	out := buf.String()
	assert.Contains(t, out, "Deployment Complete!")
	assert.Contains(t, out, "\nYour site should be accessible at:\n")
	assert.Contains(t, out, "  https://trueticket.me\n")
	assert.Contains(t, out, "  https://www.trueticket.me\n")
	assert.Contains(t, out, "\nNote: SSL certificate provisioning may take a few minutes.\n")
}

func TestCompleted_NoURLsNoNote(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Completed(nil, "")

	out := buf.String()
	assert.Contains(t, out, "Deployment Complete!")
	assert.NotContains(t, out, "accessible")
	assert.NotContains(t, out, "Note:")
}
