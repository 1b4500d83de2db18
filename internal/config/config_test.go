package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 32)))
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"ENV", "HTTP_PORT", "ALLOWED_ORIGINS", "FRONTEND_URL", "AUTH_EXPIRES_IN", "SIGNUP_EXPIRES_IN", "PURGE_RETENTION", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	c := Load()

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, c.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, c.SignupTTL)
	assert.Equal(t, 30*24*time.Hour, c.RetentionWindow)
	assert.Equal(t, 24*time.Hour, c.PurgeInterval)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.IsProduction())
	assert.False(t, c.MailEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ENV", " Production ")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("BASE_URL", "https://api.example.com/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("AUTH_EXPIRES_IN", "3600000")
	t.Setenv("SIGNUP_EXPIRES_IN", "5m")
	t.Setenv("RATE_LIMIT_TOKENS", "7")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("MAIL_HOST", "smtp.example.com")

	c := Load()

	assert.True(t, c.IsProduction())
	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, "https://api.example.com", c.BaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, c.AllowedOrigins)
	assert.Equal(t, time.Hour, c.SessionTTL)
	assert.Equal(t, 5*time.Minute, c.SignupTTL)
	assert.Equal(t, 7, c.RateLimitTokens)
	assert.True(t, c.TrustProxy)
	assert.True(t, c.MailEnabled())
}

func TestValidate(t *testing.T) {
	good := func() *Config {
		t.Setenv("LOG_LEVEL", "")
		c := Load()
		c.JWTSecret = "secret"
		c.EncryptionKey = validKey()
		return c
	}

	require.NoError(t, good().Validate())

	c := good()
	c.JWTSecret = ""
	assert.ErrorContains(t, c.Validate(), "JWT_SECRET")

	c = good()
	c.EncryptionKey = "short"
	assert.ErrorContains(t, c.Validate(), "ENCRYPTION_KEY")

	c = good()
	c.LogLevel = "http"
	assert.ErrorContains(t, c.Validate(), "LOG_LEVEL")

	c = good()
	c.SignupTTL = 0
	assert.Error(t, c.Validate())

	c = good()
	c.RetentionWindow = -time.Second
	assert.Error(t, c.Validate())
}
