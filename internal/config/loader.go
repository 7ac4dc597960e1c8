package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the coordinator
// service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string

	// Google OAuth client used to read participant calendars.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// DefaultBufferMinutes is applied to accounts that have not chosen a
	// buffer of their own.
	DefaultBufferMinutes int

	// OnceGrantTTL bounds approval-issued grants and user-addressed access
	// requests. EmailRequestTTL bounds requests addressed to an email with no
	// account yet.
	OnceGrantTTL    time.Duration
	EmailRequestTTL time.Duration
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; required values and malformed
// entries are reported together so a misconfigured deployment fails with one
// complete message.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:             8080,
		SQLiteDSN:            "file:coordinator.db?_foreign_keys=on",
		DefaultBufferMinutes: 30,
		OnceGrantTTL:         7 * 24 * time.Hour,
		EmailRequestTTL:      30 * 24 * time.Hour,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("COORDINATOR_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "COORDINATOR_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("COORDINATOR_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if id := strings.TrimSpace(os.Getenv("COORDINATOR_GOOGLE_CLIENT_ID")); id == "" {
		missing = append(missing, "COORDINATOR_GOOGLE_CLIENT_ID")
	} else {
		cfg.GoogleClientID = id
	}

	if secret := strings.TrimSpace(os.Getenv("COORDINATOR_GOOGLE_CLIENT_SECRET")); secret == "" {
		missing = append(missing, "COORDINATOR_GOOGLE_CLIENT_SECRET")
	} else {
		cfg.GoogleClientSecret = secret
	}

	if redirect := strings.TrimSpace(os.Getenv("COORDINATOR_GOOGLE_REDIRECT_URL")); redirect != "" {
		cfg.GoogleRedirectURL = redirect
	}

	if bufferValue := strings.TrimSpace(os.Getenv("COORDINATOR_DEFAULT_BUFFER_MINUTES")); bufferValue != "" {
		buffer, err := strconv.Atoi(bufferValue)
		if err != nil || buffer < 0 {
			invalid = append(invalid, "COORDINATOR_DEFAULT_BUFFER_MINUTES")
		} else {
			cfg.DefaultBufferMinutes = buffer
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("COORDINATOR_ONCE_GRANT_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "COORDINATOR_ONCE_GRANT_TTL")
		} else {
			cfg.OnceGrantTTL = ttl
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("COORDINATOR_EMAIL_REQUEST_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "COORDINATOR_EMAIL_REQUEST_TTL")
		} else {
			cfg.EmailRequestTTL = ttl
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
