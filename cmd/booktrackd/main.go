// Command booktrackd serves the booktrack HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"booktrack/internal/blob"
	"booktrack/internal/config"
	"booktrack/internal/core"
	"booktrack/internal/exchange"
	"booktrack/internal/httpapi"
	"booktrack/internal/lookup"
	"booktrack/internal/scan"
)

const shutdownTimeout = 10 * time.Second

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "booktrackd: %v\n", err)
		exitFunc(1)
	}
}

func run(ctx context.Context, logOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := core.NewPrometheusRecorder(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	backend, err := core.OpenBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.StorageDriver, err)
	}
	store, err := core.NewStore(ctx, backend, core.WithLogger(logger), core.WithMetricsRecorder(recorder))
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("load state: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close backend", "error", err)
		}
	}()

	resolver := scan.NewResolver(store, lookup.New(cfg.LookupURL, cfg.LookupTimeout),
		scan.WithLogger(logger),
		scan.WithRecorder(recorder),
		scan.WithLookupTimeout(cfg.LookupTimeout),
		scan.WithDebouncer(scan.NewDebouncer(cfg.DebounceWindow, nil)),
	)

	opts := []httpapi.Option{httpapi.WithLogger(logger), httpapi.WithGatherer(reg)}
	if cfg.ReportArchive {
		reports, err := blob.Open(ctx, core.BlobConfig(cfg))
		if err != nil {
			return fmt.Errorf("open report archive: %w", err)
		}
		opts = append(opts, httpapi.WithArchive(exchange.NewArchiver(reports, "")))
	}

	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewHandler(store, resolver, opts...)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLogger builds the process logger. format is "text" or "json".
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
