package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRelayDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := LoadRelay()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev-secret", cfg.JWTSecret)
	assert.Equal(t, "", cfg.RedisAddr)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadRelayFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadRelay()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "prod-secret", cfg.JWTSecret)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadWatchRequiresIdentity(t *testing.T) {
	t.Setenv("COLLAB_TOKEN", "")
	t.Setenv("COLLAB_USER_ID", "")
	t.Setenv("COLLAB_PROJECT_ID", "")

	_, err := LoadWatch()
	assert.Error(t, err)

	t.Setenv("COLLAB_TOKEN", "tok")
	_, err = LoadWatch()
	assert.Error(t, err)

	t.Setenv("COLLAB_USER_ID", "u1")
	t.Setenv("COLLAB_PROJECT_ID", "p1")
	cfg, err := LoadWatch()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.ServerURL)
	assert.Equal(t, "u1", cfg.UserID)
}
