// Package main provides the IPQC audit server entry point.
// It serves the checklist catalog, in-memory audit sessions and the journal.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/solarqc/ipqc-audit/pkg/cache"
	"github.com/solarqc/ipqc-audit/pkg/catalog"
	"github.com/solarqc/ipqc-audit/pkg/journal"
	"github.com/solarqc/ipqc-audit/pkg/operator"
	"github.com/solarqc/ipqc-audit/pkg/server"
	"github.com/solarqc/ipqc-audit/pkg/session"
)

func main() {
	serverCfg := server.ServerConfigFromEnv()
	catalogCfg := catalog.CatalogConfigFromEnv()
	journalCfg := journal.JournalConfigFromEnv()

	flag.StringVar(&serverCfg.ListenAddr, "listen", serverCfg.ListenAddr, "Address to listen on (env IPQC_LISTEN)")
	flag.StringVar(&catalogCfg.Path, "catalog", catalogCfg.Path, "Catalog file; empty serves the embedded catalog (env IPQC_CATALOG_PATH)")
	flag.StringVar(&journalCfg.DBType, "db-type", journalCfg.DBType, "Journal database type: sqlite, postgres or mysql")
	flag.StringVar(&journalCfg.DSN, "db-dsn", journalCfg.DSN, "Journal database connection string")
	flag.Parse()

	// Initialize glog for backwards compatibility
	_ = flag.Set("logtostderr", "true")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("IPQC_LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	logger.Info("starting ipqc server",
		"listen", serverCfg.ListenAddr,
		"catalog", catalogCfg.Path,
		"journal", journalCfg.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	c, err := catalogCfg.Open()
	if err != nil {
		glog.Fatalf("Failed to load catalog: %v", err)
	}
	holder := catalog.NewHolder(c)
	logger.Info("loaded catalog", "version", c.Version(), "lines", len(c.Lines()), "stages", len(c.File().Stages))

	var workers sync.WaitGroup
	runWorker := func(fn func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			fn(ctx)
		}()
	}

	if catalogCfg.Path != "" && catalogCfg.Watch {
		runWorker(func(ctx context.Context) {
			if err := catalog.Watch(ctx, catalogCfg.Path, holder, logger); err != nil {
				logger.Error("catalog watcher stopped", "error", err)
			}
		})
	}

	cacheManager := cache.NewManager(cache.CacheConfigFromEnv(), logger)
	cacheManager.Watch(holder)

	sessionCfg := session.SessionConfigFromEnv()
	var sessionOpts []session.Option
	serverOpts := []server.Option{
		server.WithOperatorConfig(operator.ConfigFromEnv()),
		server.WithCache(cacheManager),
	}

	if journalCfg.Enabled {
		db, err := journal.Open(ctx, journalCfg.DBType, journalCfg.DSN, logger)
		if err != nil {
			glog.Fatalf("Failed to open journal database: %v", err)
		}
		js := journal.NewStore(db)
		sessionOpts = append(sessionOpts, session.WithObserver(journal.Observer(js, logger)))
		serverOpts = append(serverOpts, server.WithJournal(js, journalCfg, db))
		runWorker(journal.NewRetentionWorker(js, journalCfg.RetentionDays, logger).Run)
	} else {
		logger.Info("journal disabled, observations will not be recorded")
	}

	sessions := session.NewStore(holder, sessionCfg, logger, sessionOpts...)
	runWorker(session.NewSweeper(sessions, sessionCfg.SweepInterval, logger).Run)

	srv := server.New(serverCfg, holder, sessions, logger, serverOpts...)

	httpServer := &http.Server{
		Addr:              serverCfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	logger.Info("ipqc server ready", "listen", serverCfg.ListenAddr)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	workers.Wait()

	logger.Info("ipqc server stopped", "openSessions", sessions.Len())
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
