package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clydetadiwa/folio/internal/config"
)

func TestResolveTransport(t *testing.T) {
	t.Run("api key wins over smtp credentials", func(t *testing.T) {
		c := &config.AppConfig{
			MailAPIKey:     "re_test_key",
			MailAPIBaseURL: "https://api.resend.com",
			SMTPUsername:   "user@example.com",
			SMTPPassword:   "secret",
			MailFrom:       "noreply@example.com",
		}
		tr, err := c.ResolveTransport()
		require.NoError(t, err)
		assert.Equal(t, config.TransportAPI, tr.Kind)
		assert.Equal(t, "re_test_key", tr.APIKey)
		assert.Equal(t, "noreply@example.com", tr.From)
	})

	t.Run("falls back to smtp", func(t *testing.T) {
		c := &config.AppConfig{
			SMTPHost:     "smtp.gmail.com",
			SMTPPort:     587,
			SMTPUsername: "user@example.com",
			SMTPPassword: "secret",
		}
		tr, err := c.ResolveTransport()
		require.NoError(t, err)
		assert.Equal(t, config.TransportSMTP, tr.Kind)
		assert.Equal(t, "smtp.gmail.com", tr.Host)
		// From defaults to the SMTP username when MAIL_FROM is unset.
		assert.Equal(t, "user@example.com", tr.From)
	})

	t.Run("no credentials at all", func(t *testing.T) {
		c := &config.AppConfig{}
		_, err := c.ResolveTransport()
		assert.ErrorIs(t, err, config.ErrNoTransport)
	})
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
	}
	for _, tt := range tests {
		c := &config.AppConfig{LogLevel: tt.in}
		assert.Equal(t, tt.want, c.SlogLevel().String(), "level %q", tt.in)
	}
}
