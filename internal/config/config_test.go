package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidSecrets(t *testing.T) {
	t.Helper()
	secret := strings.Repeat("s", 32)
	t.Setenv("ACCESS_TOKEN_SECRET", secret)
	t.Setenv("REFRESH_TOKEN_SECRET", secret)
	t.Setenv("EMAIL_VERIFY_TOKEN_SECRET", secret)
	t.Setenv("FORGOT_PASSWORD_TOKEN_SECRET", secret)
}

func TestLoad_Defaults(t *testing.T) {
	setValidSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "dev", cfg.Server.Env)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.TrustedOrigins)

	assert.Equal(t, "jwt", cfg.Auth.Backend)
	assert.Equal(t, "postgres", cfg.Auth.Store)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.Equal(t, 24*time.Hour, cfg.Auth.EmailVerifyTokenDuration)
	assert.Equal(t, time.Hour, cfg.Auth.ForgotPasswordTokenDuration)

	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
}

func TestLoad_Overrides(t *testing.T) {
	setValidSecrets(t)
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("ACCESS_TOKEN_DURATION", "900")
	t.Setenv("TRUSTED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("REFRESH_TOKEN_STORE", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 900*time.Second, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.TrustedOrigins)
	assert.Equal(t, "redis", cfg.Auth.Store)
}

func TestLoad_MissingSecret(t *testing.T) {
	setValidSecrets(t)
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFRESH_TOKEN_SECRET")
}

func TestLoad_ShortSecret(t *testing.T) {
	setValidSecrets(t)
	t.Setenv("ACCESS_TOKEN_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_SECRET")
}

func TestLoad_PasetoSecretLength(t *testing.T) {
	setValidSecrets(t)
	t.Setenv("TOKEN_BACKEND", "paseto")

	// 32 bytes exactly is fine
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "paseto", cfg.Auth.Backend)

	// 33 bytes is not
	t.Setenv("ACCESS_TOKEN_SECRET", strings.Repeat("s", 33))
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 32 bytes")
}

func TestLoad_InvalidEnums(t *testing.T) {
	setValidSecrets(t)

	t.Run("backend", func(t *testing.T) {
		t.Setenv("TOKEN_BACKEND", "hs512")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TOKEN_BACKEND")
	})

	t.Run("store", func(t *testing.T) {
		t.Setenv("REFRESH_TOKEN_STORE", "memcached")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REFRESH_TOKEN_STORE")
	})
}

func TestDatabaseConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     "5432",
		User:     "app",
		Password: "secret",
		DBName:   "chirper",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5432 user=app password=secret dbname=chirper sslmode=require",
		cfg.ConnectionString())

	cfg.ChannelBinding = "require"
	assert.Contains(t, cfg.ConnectionString(), "channel_binding=require")
}
