// Package server assembles the catalog, session and journal routers into a
// single HTTP handler.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/solarqc/ipqc-audit/pkg/cache"
	"github.com/solarqc/ipqc-audit/pkg/catalog"
	"github.com/solarqc/ipqc-audit/pkg/journal"
	"github.com/solarqc/ipqc-audit/pkg/operator"
	"github.com/solarqc/ipqc-audit/pkg/session"
)

// APIPrefix is the base path of every API route.
const APIPrefix = "/api/v1"

// Server wires the HTTP surface together.
type Server struct {
	config      *ServerConfig
	catalogs    *catalog.Holder
	sessions    *session.Store
	journal     *journal.Store
	journalCfg  *journal.JournalConfig
	db          *gorm.DB
	operatorCfg *operator.Config
	cache       *cache.Manager
	logger      *slog.Logger
	startedAt   time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithJournal enables the journal routes and request recording. db is pinged
// by the readiness probe and may be nil.
func WithJournal(store *journal.Store, cfg *journal.JournalConfig, db *gorm.DB) Option {
	return func(s *Server) {
		s.journal = store
		s.journalCfg = cfg
		s.db = db
	}
}

// WithOperatorConfig sets how operators are attributed. Defaults to
// optional attribution.
func WithOperatorConfig(cfg *operator.Config) Option {
	return func(s *Server) {
		s.operatorCfg = cfg
	}
}

// WithCache caches catalog read responses.
func WithCache(m *cache.Manager) Option {
	return func(s *Server) {
		s.cache = m
	}
}

// New creates a Server.
func New(cfg *ServerConfig, catalogs *catalog.Holder, sessions *session.Store, logger *slog.Logger, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:      cfg,
		catalogs:    catalogs,
		sessions:    sessions,
		operatorCfg: operator.DefaultConfig(),
		logger:      logger,
		startedAt:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", operator.Header, operator.StationHeader},
		ExposedHeaders:   []string{"X-Cache", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.healthHandler)
	r.Get("/livez", s.healthHandler)
	r.Get("/readyz", s.readyHandler)

	r.Route(APIPrefix, func(api chi.Router) {
		api.Use(operator.Middleware(s.operatorCfg))

		api.Route("/catalog", func(cr chi.Router) {
			cr.Use(s.cache.CatalogMiddleware())
			cr.Mount("/", catalog.Router(s.catalogs))
		})

		api.Route("/sessions", func(sr chi.Router) {
			if s.journal != nil {
				sr.Use(journal.RequestMiddleware(s.journal, s.journalCfg, s.logger))
			}
			sr.Mount("/", session.Router(s.sessions))
		})

		if s.journal != nil {
			api.Mount("/journal", journal.Router(s.journal))
		}
	})

	s.logger.Info("routes mounted",
		"prefix", APIPrefix,
		"journal", s.journal != nil,
		"cache", s.cache != nil,
		"operatorMode", string(s.operatorCfg.Mode))

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// readyHandler reports whether a catalog is loaded and the journal
// database answers.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ready := true

	catalogStatus := map[string]any{"status": "loaded"}
	if c := s.catalogs.Load(); c == nil {
		catalogStatus["status"] = "missing"
		ready = false
	} else {
		catalogStatus["version"] = c.Version()
	}

	dbStatus := map[string]string{"status": "up"}
	if s.db == nil {
		dbStatus["status"] = "not_configured"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus["status"] = "down"
		dbStatus["error"] = err.Error()
		ready = false
	} else if err := sqlDB.PingContext(r.Context()); err != nil {
		dbStatus["status"] = "down"
		dbStatus["error"] = err.Error()
		ready = false
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"catalog":  catalogStatus,
		"database": dbStatus,
		"sessions": s.sessions.Len(),
		"cache":    s.cache.Stats(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
