package journal

import (
	"os"
	"strconv"
)

// JournalConfig controls the journal.
type JournalConfig struct {
	Enabled       bool   // Whether observation and request events are recorded
	RetentionDays int    // Default 90
	DBType        string // sqlite, postgres or mysql
	DSN           string // Empty means an in-memory sqlite database
	LogRequests   bool   // Whether the request middleware records mutating calls
}

// DefaultJournalConfig returns the default configuration.
func DefaultJournalConfig() *JournalConfig {
	return &JournalConfig{
		Enabled:       true,
		RetentionDays: 90,
		DBType:        DBTypeSQLite,
		LogRequests:   true,
	}
}

// JournalConfigFromEnv loads config from environment variables.
// IPQC_JOURNAL_ENABLED, IPQC_JOURNAL_RETENTION_DAYS, IPQC_JOURNAL_DB_TYPE,
// IPQC_JOURNAL_DB_DSN, IPQC_JOURNAL_LOG_REQUESTS
func JournalConfigFromEnv() *JournalConfig {
	cfg := DefaultJournalConfig()

	if v := os.Getenv("IPQC_JOURNAL_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	if v := os.Getenv("IPQC_JOURNAL_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	if v := os.Getenv("IPQC_JOURNAL_DB_TYPE"); v != "" {
		cfg.DBType = v
	}

	if v := os.Getenv("IPQC_JOURNAL_DB_DSN"); v != "" {
		cfg.DSN = v
	}

	if v := os.Getenv("IPQC_JOURNAL_LOG_REQUESTS"); v != "" {
		cfg.LogRequests, _ = strconv.ParseBool(v)
	}

	return cfg
}
