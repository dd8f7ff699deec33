// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session store backends.
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	DBPath         string
	SessionTTL     time.Duration
	SessionBackend string // "sqlite" or "redis"
	RedisAddr      string
	SweepInterval  time.Duration
	SMS            SMSConfig
}

// SMSConfig controls the delivery engine and its gateway providers.
type SMSConfig struct {
	EnableRealSMS bool

	AfricasTalkingUsername string
	AfricasTalkingAPIKey   string
	AfricasTalkingSenderID string

	SafaricomConsumerKey    string
	SafaricomConsumerSecret string
	SafaricomSenderID       string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "3000"),
		DBPath:         getEnv("DB_PATH", "./data/skillsmapper.db"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionBackend: getEnv("SESSION_BACKEND", SessionBackendSQLite),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		SweepInterval:  getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		SMS: SMSConfig{
			EnableRealSMS:           getEnvBool("ENABLE_REAL_SMS", false),
			AfricasTalkingUsername:  getEnv("AFRICASTALKING_USERNAME", ""),
			AfricasTalkingAPIKey:    getEnv("AFRICASTALKING_API_KEY", ""),
			AfricasTalkingSenderID:  getEnv("AFRICASTALKING_SENDER_ID", "SKILLSMAP"),
			SafaricomConsumerKey:    getEnv("SAFARICOM_CONSUMER_KEY", ""),
			SafaricomConsumerSecret: getEnv("SAFARICOM_CONSUMER_SECRET", ""),
			SafaricomSenderID:       getEnv("SAFARICOM_SENDER_ID", "600000"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	switch c.SessionBackend {
	case SessionBackendSQLite, SessionBackendRedis:
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q",
			SessionBackendSQLite, SessionBackendRedis, c.SessionBackend)
	}
	if c.SessionBackend == SessionBackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR cannot be empty when SESSION_BACKEND=redis")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	// Accept bare minutes for convenience ("30") as well as Go durations.
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return time.Duration(n) * time.Minute
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
