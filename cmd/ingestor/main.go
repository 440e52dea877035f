// Command ingestor boots the HTTP ingestion path: config → currency table
// → Event Log/Metric Store connections → router → serve, per spec.md §2's
// Ingestor component.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yuno/sentinel/internal/config"
	"github.com/yuno/sentinel/internal/currency"
	"github.com/yuno/sentinel/internal/eventlog"
	"github.com/yuno/sentinel/internal/httpapi"
	"github.com/yuno/sentinel/internal/incidents"
	"github.com/yuno/sentinel/internal/ingestor"
	"github.com/yuno/sentinel/internal/logging"
	"github.com/yuno/sentinel/internal/metricstore"
	"github.com/yuno/sentinel/internal/rules"
)

// Exit codes per spec.md §6: 0 normal shutdown, 1 configuration error, 2
// dependency unavailable at startup, 130 interrupted.
const (
	exitOK                 = 0
	exitConfigError        = 1
	exitDependencyFailure  = 2
	exitInterrupted        = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logging.New("ingestor")
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration error", zap.Error(err))
		return exitConfigError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fxTable := currency.Default()
	if cfg.CurrencyTablePath != "" {
		loaded, err := currency.LoadFile(cfg.CurrencyTablePath)
		if err != nil {
			log.Error("failed to load currency table", zap.Error(err))
			return exitConfigError
		}
		fxTable = loaded
	}

	dbPool, err := eventlog.Connect(ctx, cfg.DBURL)
	if err != nil {
		log.Error("failed to connect to event log database", zap.Error(err))
		return exitDependencyFailure
	}
	defer dbPool.Close()

	events := eventlog.New(dbPool)
	if err := events.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure event log schema", zap.Error(err))
		return exitDependencyFailure
	}

	redisClient, err := metricstore.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to metric store", zap.Error(err))
		return exitDependencyFailure
	}
	defer redisClient.Close()

	metrics := metricstore.New(redisClient, cfg.BucketTTLSeconds)

	in := ingestor.New(events, metrics, fxTable, log)

	ruleStore := rules.New(dbPool)
	if err := ruleStore.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure rule registry schema", zap.Error(err))
		return exitDependencyFailure
	}

	incidentStore := incidents.New(dbPool)
	if err := incidentStore.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure incident store schema", zap.Error(err))
		return exitDependencyFailure
	}

	router := httpapi.NewRouter(in, ruleStore, incidentStore, metrics, events)

	srv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("ingestor listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown failed", zap.Error(err))
		}
		return exitInterrupted
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exited unexpectedly", zap.Error(err))
			return exitDependencyFailure
		}
		return exitOK
	}
}
