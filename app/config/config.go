// Package config loads application settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds every runtime setting of the blog service.
type Config struct {
	Addr            string        `validate:"required"`
	DatabasePath    string        `validate:"required"`
	SessionDir      string        `validate:"required"`
	SessionCookie   string        `validate:"required,printascii,excludesall=;="`
	SessionTTL      time.Duration `validate:"gte=0"`
	CookieSecure    bool
	BcryptCost      int           `validate:"gte=4,lte=31"`
	LogLevel        string        `validate:"oneof=debug info warn error"`
	LogFormat       string        `validate:"oneof=text json"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// Default returns the configuration used when no environment variable is set.
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		DatabasePath:    "data/postcomm.db",
		SessionDir:      "data/sessions",
		SessionCookie:   "postcomm_session",
		SessionTTL:      0,
		CookieSecure:    false,
		BcryptCost:      bcrypt.DefaultCost,
		LogLevel:        "info",
		LogFormat:       "text",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads an optional .env file and then the process environment.
// All parse errors are collected and reported together.
func Load() (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	def := Default()
	var errs []string

	cfg := &Config{
		Addr:            getEnv("ADDR", def.Addr),
		DatabasePath:    getEnv("DATABASE_PATH", def.DatabasePath),
		SessionDir:      getEnv("SESSION_DIR", def.SessionDir),
		SessionCookie:   getEnv("SESSION_COOKIE", def.SessionCookie),
		SessionTTL:      getEnvDuration("SESSION_TTL", def.SessionTTL, &errs),
		CookieSecure:    getEnvBool("COOKIE_SECURE", def.CookieSecure, &errs),
		BcryptCost:      getEnvInt("BCRYPT_COST", def.BcryptCost, &errs),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", def.LogLevel)),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", def.LogFormat)),
		ReadTimeout:     getEnvDuration("READ_TIMEOUT", def.ReadTimeout, &errs),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", def.WriteTimeout, &errs),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", def.ShutdownTimeout, &errs),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]string) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected integer, got %q", key, value))
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool, errs *[]string) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected boolean, got %q", key, value))
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected duration, got %q", key, value))
		return defaultValue
	}
	return d
}
