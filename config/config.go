package config

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultAddress         = ":8000"
	defaultPollInterval    = time.Second
	defaultMaxPollAttempts = 300
)

// Config holds application configuration
type Config struct {
	// Address the HTTP server listens on
	Address string
	// BackendURL points at the model backend; empty selects the mock
	BackendURL string
	// PollInterval is the cadence for async job status polls
	PollInterval time.Duration
	// MaxPollAttempts bounds async job polling before a timeout error
	MaxPollAttempts int
	// MaxConcurrentSteps above 1 lets independent steps run concurrently
	MaxConcurrentSteps int
}

// globalConfig holds the application configuration instance
var globalConfig *Config

// Initialize sets up the configuration from environment variables
func Initialize() {
	globalConfig = &Config{
		Address:            getEnv("VEDIT_ADDRESS", defaultAddress),
		BackendURL:         os.Getenv("VEDIT_BACKEND_URL"),
		PollInterval:       getDuration("VEDIT_POLL_INTERVAL", defaultPollInterval),
		MaxPollAttempts:    getInt("VEDIT_MAX_POLL_ATTEMPTS", defaultMaxPollAttempts),
		MaxConcurrentSteps: getInt("VEDIT_MAX_CONCURRENT_STEPS", 1),
	}
}

// Get returns the global configuration instance
func Get() *Config {
	if globalConfig == nil {
		Initialize()
	}
	return globalConfig
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
