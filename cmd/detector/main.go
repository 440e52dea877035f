// Command detector boots the periodic rule-evaluation loop: config →
// connections → advisory lock → rule snapshot → enricher pool → detector
// tick loop, per spec.md §2's Detector component. Only one instance may
// hold the Incident Store's advisory lock at a time (spec.md §5).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yuno/sentinel/internal/config"
	"github.com/yuno/sentinel/internal/detector"
	"github.com/yuno/sentinel/internal/enricher"
	"github.com/yuno/sentinel/internal/eventlog"
	"github.com/yuno/sentinel/internal/incidents"
	"github.com/yuno/sentinel/internal/llm"
	"github.com/yuno/sentinel/internal/logging"
	"github.com/yuno/sentinel/internal/metricstore"
	"github.com/yuno/sentinel/internal/rules"
)

const (
	exitOK                = 0
	exitConfigError       = 1
	exitDependencyFailure = 2
	exitInterrupted       = 130

	enrichQueueSize = 256
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logging.New("detector")
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration error", zap.Error(err))
		return exitConfigError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := eventlog.Connect(ctx, cfg.DBURL)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return exitDependencyFailure
	}
	defer dbPool.Close()

	redisClient, err := metricstore.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to metric store", zap.Error(err))
		return exitDependencyFailure
	}
	defer redisClient.Close()

	events := eventlog.New(dbPool)
	metrics := metricstore.New(redisClient, cfg.BucketTTLSeconds)
	ruleStore := rules.New(dbPool)
	incidentStore := incidents.New(dbPool)

	if err := ruleStore.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure rule registry schema", zap.Error(err))
		return exitDependencyFailure
	}
	if err := incidentStore.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure incident store schema", zap.Error(err))
		return exitDependencyFailure
	}

	acquired, err := incidentStore.AcquireDetectorLock(ctx)
	if err != nil {
		log.Error("failed to acquire detector advisory lock", zap.Error(err))
		return exitDependencyFailure
	}
	if !acquired {
		log.Error("another detector instance already holds the advisory lock")
		return exitDependencyFailure
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := incidentStore.ReleaseDetectorLock(releaseCtx); err != nil {
			log.Warn("failed to release detector advisory lock", zap.Error(err))
		}
	}()

	llmClient, err := llm.New(cfg.LLMProvider, cfg.GeminiAPIKey, cfg.OpenAIAPIKey, cfg.LLMTimeout)
	if err != nil {
		log.Error("failed to build llm client", zap.Error(err))
		return exitConfigError
	}

	enr := enricher.New(incidentStore, llmClient, cfg.EnrichWorkers, cfg.LLMTimeout, enrichQueueSize, log)

	snapshot := rules.NewSnapshot(ruleStore, cfg.RuleRefreshInterval, log)

	det := detector.New(snapshot, ruleStore, incidentStore, metrics, events, enr, detector.Config{
		WindowMinutesRate:    cfg.WindowMinutesRate,
		MinConsecutiveErrors: cfg.MinConsecutiveErrors,
		RecoveryThreshold:    cfg.RecoveryThreshold,
		CooldownSeconds:      cfg.CooldownSeconds,
		TickInterval:         cfg.TickInterval,
	}, log)

	go snapshot.Start(ctx)
	go enr.Start(ctx)

	log.Info("detector running", zap.Duration("tick_interval", cfg.TickInterval))
	det.Run(ctx)

	log.Info("detector shutting down")
	select {
	case <-ctx.Done():
		return exitInterrupted
	default:
		return exitOK
	}
}
