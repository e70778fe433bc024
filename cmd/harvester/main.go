package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/harvester/api"
	"github.com/use-agent/harvester/cache"
	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/download"
	"github.com/use-agent/harvester/extract"
	"github.com/use-agent/harvester/fetch"
	"github.com/use-agent/harvester/store"
	"github.com/use-agent/harvester/vision"
	"github.com/use-agent/harvester/watch"
)

const version = "0.1.0"

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("harvester starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 3. Launch browser and fetcher ───────────────────────────────
	// Browser launch failure is non-fatal: HTTP-only deployments still
	// serve pages that render without JavaScript.
	browser, err := fetch.NewBrowser(cfg.Browser)
	if err != nil {
		slog.Warn("browser unavailable, HTTP engine only", "error", err)
		browser = nil
	}
	fetcher := fetch.NewFetcher(cfg.Fetcher, browser)
	defer fetcher.Close()
	if browser != nil {
		defer browser.Close()
	}

	// ── 4. Open credential store ────────────────────────────────────
	st, err := store.Open(cfg.Store.Path, version)
	if err != nil {
		slog.Error("failed to open credential store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}

	// ── 5. Assemble the harvest pipeline ────────────────────────────
	extractor := extract.NewExtractor(cfg.Download.TrustedHosts)
	dm := download.NewManager(cfg.Download, fetcher.HTTPClient())
	wm := watch.NewManager(cfg.Watch, extractor)
	defer wm.StopAll()
	vc := vision.NewClient(cfg.Vision, nil)
	cc := cache.New(cfg.Cache.MaxEntries)

	// ── 6. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(fetcher, extractor, dm, wm, vc, st, cc, cfg, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Watchers and browser close via defer.
	slog.Info("harvester stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
