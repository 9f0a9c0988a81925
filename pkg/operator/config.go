// Package operator attributes requests to the operator filling in the
// checklist. Identity is asserted by the client; there is no authentication.
package operator

import (
	"os"
	"strings"
)

// Mode controls whether requests must name an operator.
type Mode string

const (
	// ModeOptional attributes unnamed requests to Anonymous.
	ModeOptional Mode = "optional"
	// ModeRequired rejects requests without an operator header.
	ModeRequired Mode = "required"
)

// Config holds operator attribution settings.
type Config struct {
	Mode Mode
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{Mode: ModeOptional}
}

// ConfigFromEnv reads IPQC_OPERATOR_MODE ("optional" or "required").
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	if v := os.Getenv("IPQC_OPERATOR_MODE"); v != "" {
		switch Mode(strings.ToLower(v)) {
		case ModeRequired:
			cfg.Mode = ModeRequired
		case ModeOptional:
			cfg.Mode = ModeOptional
		}
	}
	return cfg
}
