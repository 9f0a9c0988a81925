package cache

import (
	"log/slog"
	"net/http"

	"github.com/solarqc/ipqc-audit/pkg/catalog"
)

// Manager owns the catalog response cache and flushes it whenever the
// catalog is reloaded. A nil Manager is valid and caches nothing.
type Manager struct {
	catalog *LRUCache
	logger  *slog.Logger
}

// NewManager creates a Manager from cfg. It returns nil when caching is
// disabled.
func NewManager(cfg *CacheConfig, logger *slog.Logger) *Manager {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		catalog: NewLRUCache(cfg.MaxSize, cfg.TTL),
		logger:  logger,
	}
}

// Watch subscribes the manager to catalog reloads.
func (m *Manager) Watch(h *catalog.Holder) {
	if m == nil || h == nil {
		return
	}
	h.OnReload(func(c *catalog.Catalog) {
		m.InvalidateAll()
		m.logger.Info("catalog cache flushed", "version", c.Version())
	})
}

// InvalidateAll clears the cache.
func (m *Manager) InvalidateAll() {
	if m == nil {
		return
	}
	m.catalog.InvalidateAll()
}

// Stats reports the catalog cache counters.
func (m *Manager) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return m.catalog.Stats()
}

// CatalogMiddleware caches catalog read responses.
func (m *Manager) CatalogMiddleware() func(http.Handler) http.Handler {
	if m == nil {
		return Middleware(nil)
	}
	return Middleware(m.catalog)
}
