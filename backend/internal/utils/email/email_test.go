package email

import (
	"strings"
	"testing"
	"time"

	"github.com/itchan-dev/modpolicy/shared/config"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCorrect(t *testing.T) {
	e := New(&config.Email{})

	testCases := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "plain address", email: "member@example.com", valid: true},
		{name: "missing at", email: "member.example.com"},
		{name: "empty", email: ""},
		{name: "display name", email: "Member <member@example.com>"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.IsCorrect(tc.email)
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, internal_errors.KindValidation, internal_errors.KindOf(err))
		})
	}
}

func TestSendWithoutServerOnlyLogs(t *testing.T) {
	e := New(&config.Email{})
	assert.NoError(t, e.Send("member@example.com", "Confirmation code", "123456"))
}

func TestMessage(t *testing.T) {
	e := New(&config.Email{Username: "smtp-user", SenderEmail: "noreply@modpolicy.example", SenderName: "Moderation"})
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	msg := string(e.message("member@example.com", "Confirmation code", "code 123456", now))

	assert.Contains(t, msg, "To: member@example.com\r\n")
	assert.Contains(t, msg, "From: \"Moderation\" <noreply@modpolicy.example>\r\n")
	assert.Contains(t, msg, "Date: Fri, 02 Jan 2026 03:04:05 +0000\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\ncode 123456"))
}

func TestSenderFallsBackToUsername(t *testing.T) {
	assert.Equal(t, "user@smtp.example", New(&config.Email{Username: "user@smtp.example"}).sender())
	assert.Equal(t, "noreply@x.example", New(&config.Email{Username: "user", SenderEmail: "noreply@x.example"}).sender())
}
