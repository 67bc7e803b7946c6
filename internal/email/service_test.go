package emailService

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(previous) })
	return &buf
}

func TestQueueEmail_DisabledSenderLogsConfirmationCode(t *testing.T) {
	buf := captureLog(t)

	var sender *EmailService
	sender.QueueEmail("user@example.com", RegistrationConfirmationData{
		Email: "user@example.com",
		Code:  "428117",
	})

	logged := buf.String()
	assert.Contains(t, logged, "user@example.com")
	assert.Contains(t, logged, "428117")
}

func TestRegistrationConfirmationData(t *testing.T) {
	data := RegistrationConfirmationData{Email: "user@example.com", Code: "123456"}
	assert.Equal(t, "registration_confirmation.html", data.TemplateFileName())
	assert.Equal(t, "Confirm your registration", data.Subject())
}
