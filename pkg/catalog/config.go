package catalog

import (
	"os"
	"strings"
)

// CatalogConfig controls where the catalog comes from.
type CatalogConfig struct {
	// Path is an optional catalog file that replaces the embedded catalog.
	Path string

	// Watch reloads Path when it changes.
	Watch bool
}

// DefaultCatalogConfig returns a config serving the embedded catalog.
func DefaultCatalogConfig() *CatalogConfig {
	return &CatalogConfig{Watch: true}
}

// CatalogConfigFromEnv reads catalog configuration from environment
// variables, falling back to defaults for any unset variable.
//
// Environment variables:
//   - IPQC_CATALOG_PATH: catalog file path (default: embedded catalog)
//   - IPQC_CATALOG_WATCH: "true" or "false" (default: "true")
func CatalogConfigFromEnv() *CatalogConfig {
	cfg := DefaultCatalogConfig()
	if v := os.Getenv("IPQC_CATALOG_PATH"); v != "" {
		cfg.Path = v
	}
	if v := os.Getenv("IPQC_CATALOG_WATCH"); v != "" {
		cfg.Watch = strings.EqualFold(v, "true") || v == "1"
	}
	return cfg
}

// Open loads the catalog cfg names: the file at Path, or the embedded
// catalog when Path is empty.
func (cfg *CatalogConfig) Open() (*Catalog, error) {
	if cfg == nil || cfg.Path == "" {
		return Default()
	}
	return LoadFile(cfg.Path)
}
