package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IDENTITY_BASE_URL", "")
	t.Setenv("TOKEN_STORE", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.IdentityBaseURL)
	assert.Equal(t, "/api/auth/jwt/create/", cfg.IdentityTokenPath)
	assert.Equal(t, TokenStoreMemory, cfg.TokenStore)
	assert.Equal(t, "fail_open", cfg.ApprovalCheckPolicy)
	assert.Equal(t, 10, cfg.AuthRateLimitRPM)
	assert.Equal(t, 5*time.Second, cfg.IdentityTimeout)
	assert.Greater(t, cfg.RequestTimeout, 4*cfg.IdentityTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("IDENTITY_BASE_URL", "https://id.example.com")
	t.Setenv("IDENTITY_USERS_PATH", "/auth/users/")
	t.Setenv("IDENTITY_TIMEOUT", "3s")
	t.Setenv("INSTITUTION_DOMAINS", "a.edu, b.edu ,,")
	t.Setenv("APPROVAL_CHECK_POLICY", "fail_closed")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_RPM", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/auth/users/", cfg.IdentityUsersPath)
	assert.Equal(t, 3*time.Second, cfg.IdentityTimeout)
	assert.Equal(t, []string{"a.edu", "b.edu"}, cfg.InstitutionDomains)
	assert.Equal(t, "fail_closed", cfg.ApprovalCheckPolicy)
	assert.True(t, cfg.SessionCookieSecure)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 100, cfg.RateLimitRPM)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ServerPort:          "8080",
			RequestTimeout:      5 * time.Second,
			IdentityBaseURL:     "http://localhost:8000",
			IdentityTimeout:     time.Second,
			ApprovalCheckPolicy: "fail_open",
			TokenStore:          TokenStoreMemory,
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.IdentityBaseURL = "localhost:8000/api"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.IdentityTimeout = 2 * time.Second
	assert.ErrorContains(t, cfg.Validate(), "REQUEST_TIMEOUT")

	cfg = valid()
	cfg.ApprovalCheckPolicy = "sometimes"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.TokenStore = TokenStorePostgres
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg = valid()
	cfg.TokenStore = "redis"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.TokenStore = TokenStoreFile
	assert.Error(t, cfg.Validate())
	cfg.TokenFile = "/tmp/tokens.json"
	assert.NoError(t, cfg.Validate())
}
