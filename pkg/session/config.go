package session

import (
	"os"
	"strconv"
	"time"
)

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int

	// IdleTTL discards sessions that have not been touched for this long.
	// Zero disables expiry.
	IdleTTL time.Duration

	// SweepInterval is how often idle sessions are looked for.
	SweepInterval time.Duration
}

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		MaxSessions:   256,
		IdleTTL:       12 * time.Hour,
		SweepInterval: 5 * time.Minute,
	}
}

// SessionConfigFromEnv loads config from environment variables.
// IPQC_SESSION_MAX, IPQC_SESSION_IDLE_TTL_MINUTES, IPQC_SESSION_SWEEP_SECONDS
func SessionConfigFromEnv() *SessionConfig {
	cfg := DefaultSessionConfig()

	if v := os.Getenv("IPQC_SESSION_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxSessions = n
		}
	}

	if v := os.Getenv("IPQC_SESSION_IDLE_TTL_MINUTES"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins >= 0 {
			cfg.IdleTTL = time.Duration(mins) * time.Minute
		}
	}

	if v := os.Getenv("IPQC_SESSION_SWEEP_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.SweepInterval = time.Duration(secs) * time.Second
		}
	}

	return cfg
}
