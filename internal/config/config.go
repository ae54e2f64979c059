package config

import (
	"errors"
	"os"
	"strings"
)

// RelayConfig configures the relayd binary.
type RelayConfig struct {
	Port           string
	JWTSecret      string
	RedisAddr      string // "" disables the project-event bridge
	AllowedOrigins []string
}

func LoadRelay() (*RelayConfig, error) {
	cfg := &RelayConfig{
		Port:      getEnvOrDefault("PORT", "8080"),
		JWTSecret: getEnvOrDefault("JWT_SECRET", "dev-secret"),
		RedisAddr: os.Getenv("REDIS_ADDR"),
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	} else {
		cfg.AllowedOrigins = []string{"*"}
	}
	return cfg, nil
}

// WatchConfig configures the roomwatch binary.
type WatchConfig struct {
	ServerURL string
	Token     string
	UserID    string
	ProjectID string
}

func LoadWatch() (*WatchConfig, error) {
	cfg := &WatchConfig{
		ServerURL: getEnvOrDefault("COLLAB_WS_URL", "ws://localhost:8080/ws"),
		Token:     os.Getenv("COLLAB_TOKEN"),
		UserID:    os.Getenv("COLLAB_USER_ID"),
		ProjectID: os.Getenv("COLLAB_PROJECT_ID"),
	}
	if cfg.Token == "" {
		return nil, errors.New("COLLAB_TOKEN is required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("COLLAB_USER_ID is required")
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("COLLAB_PROJECT_ID is required")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
