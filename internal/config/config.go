package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jaminalder/perfect-tic-tac-toe/internal/logger"
)

const (
	defaultHost      = "127.0.0.1"
	defaultPort      = "3000"
	defaultHeartbeat = 15 * time.Second
)

// ServerConfig holds all configuration values loaded from environment variables.
type ServerConfig struct {
	Host         string
	Port         string
	LogLevel     slog.Level
	SSEHeartbeat time.Duration
}

// Addr is the listen address.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LoadServerConfig reads TTT_HOST, TTT_PORT, LOG_LEVEL and TTT_SSE_HEARTBEAT.
// Unset variables take their defaults.
func LoadServerConfig() (*ServerConfig, error) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	heartbeat := defaultHeartbeat
	if v := os.Getenv("TTT_SSE_HEARTBEAT"); v != "" {
		heartbeat, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TTT_SSE_HEARTBEAT: %w", err)
		}
		if heartbeat <= 0 {
			return nil, fmt.Errorf("TTT_SSE_HEARTBEAT must be positive, got %s", heartbeat)
		}
	}

	return &ServerConfig{
		Host:         getEnv("TTT_HOST", defaultHost),
		Port:         getEnv("TTT_PORT", defaultPort),
		LogLevel:     level,
		SSEHeartbeat: heartbeat,
	}, nil
}

// MustLoadServerConfig either returns the configuration or logs the problem and exits.
func MustLoadServerConfig() *ServerConfig {
	cfg, err := LoadServerConfig()
	if err != nil {
		slog.Error("Cannot load configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
