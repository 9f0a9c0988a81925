package server

import (
	"os"
	"strings"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string

	// CORSOrigins lists the origins allowed to call the API from a browser.
	// Wildcards follow go-chi/cors rules.
	CORSOrigins []string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ListenAddr:  ":8080",
		CORSOrigins: []string{"https://*", "http://*"},
	}
}

// ServerConfigFromEnv reads IPQC_LISTEN and IPQC_CORS_ORIGINS (comma
// separated), falling back to defaults.
func ServerConfigFromEnv() *ServerConfig {
	cfg := DefaultServerConfig()

	if v := os.Getenv("IPQC_LISTEN"); v != "" {
		cfg.ListenAddr = v
	}

	if v := os.Getenv("IPQC_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.CORSOrigins = origins
		}
	}

	return cfg
}
