// Command assetbundled serves asset bundle requests over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nonamekit/assetbundle"
	"github.com/nonamekit/assetbundle/httpapi"
)

type config struct {
	listen      string
	cacheDir    string
	repoHost    string
	rawHost     string
	mirror      string
	concurrency int
	attempts    int
	logLevel    string
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.listen, "listen", ":8080", "listen address")
	flag.StringVar(&cfg.cacheDir, "cache-dir", "cache", "directory for completed bundles")
	flag.StringVar(&cfg.repoHost, "repo-host", "", "tag-listing API host (default GitHub)")
	flag.StringVar(&cfg.rawHost, "raw-host", "", "raw file content host (default GitHub)")
	flag.StringVar(&cfg.mirror, "mirror", "", "pass-through mirror prefix for raw downloads")
	flag.IntVar(&cfg.concurrency, "concurrency", 0, "fetch permit ceiling (default 8)")
	flag.IntVar(&cfg.attempts, "attempts", 0, "per-file fetch attempts (default 5)")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.logLevel)); err != nil {
		slog.Error("invalid log level", "value", cfg.logLevel)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	svc, err := assetbundle.New(
		assetbundle.WithCacheDir(cfg.cacheDir),
		assetbundle.WithRepoHost(cfg.repoHost),
		assetbundle.WithRawHost(cfg.rawHost),
		assetbundle.WithMirror(cfg.mirror),
		assetbundle.WithConcurrency(cfg.concurrency),
		assetbundle.WithRetryAttempts(cfg.attempts),
		assetbundle.WithLogger(logger),
	)
	if err != nil {
		logger.Error("service setup failed", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /", httpapi.NewHandler(svc, httpapi.WithLogger(logger)))

	srv := &http.Server{
		Addr:              cfg.listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.listen, "cache", cfg.cacheDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}
