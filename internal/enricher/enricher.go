// Package enricher is the pool of workers that consume incidents in
// ENRICHING, call the LLM, and transition them to NOTIFIED, per spec.md
// §4.5. Enrichment failure never blocks notification: on retry exhaustion
// the incident still reaches NOTIFIED, with llm_explanation left nil and
// enrichment_status=failed.
package enricher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yuno/sentinel/internal/llm"
	"github.com/yuno/sentinel/internal/models"
)

// IncidentWriter is the one Incident Store method the Enricher needs,
// narrowed to an interface so the worker pool can be tested with an
// in-memory fake instead of a live Postgres connection. *incidents.Store
// satisfies this.
type IncidentWriter interface {
	WriteEnrichment(ctx context.Context, incidentID string, explanation *string, status models.EnrichmentStatus, action *models.SuggestedAction) error
}

// Job is everything the Enricher needs to build a prompt and write back the
// result, handed off by the Detector when it transitions an incident to
// ENRICHING.
type Job struct {
	IncidentID           string
	Provider             string
	Country              string
	AffectedTransactions int64
	RevenueAtRiskUSD     float64
	IssuerName           string
	SubStatuses          []string
	MostCommonCode       string
	MerchantAdviceCode   string
}

// Enricher owns a bounded worker pool reading from an internal queue.
type Enricher struct {
	store   IncidentWriter
	client  llm.Client
	timeout time.Duration
	workers int
	log     *zap.Logger

	queue chan Job
}

// New builds an Enricher with the given worker count and per-call timeout.
// queueSize bounds how many ENRICHING incidents can be buffered before
// EnqueueContext has to wait — the Detector's tick budget (spec.md §5)
// means it must not wait indefinitely, so the Detector passes the tick's
// own context, whose deadline ends the wait.
func New(store IncidentWriter, client llm.Client, workers int, timeout time.Duration, queueSize int, log *zap.Logger) *Enricher {
	if workers < 1 {
		workers = 1
	}
	return &Enricher{
		store:   store,
		client:  client,
		timeout: timeout,
		workers: workers,
		log:     log,
		queue:   make(chan Job, queueSize),
	}
}

// Start launches the worker pool; it returns once ctx is cancelled and
// every in-flight job has drained.
func (e *Enricher) Start(ctx context.Context) {
	done := make(chan struct{})
	for i := 0; i < e.workers; i++ {
		go e.worker(ctx, done)
	}
	<-ctx.Done()
	for i := 0; i < e.workers; i++ {
		<-done
	}
}

func (e *Enricher) worker(ctx context.Context, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.queue:
			e.process(ctx, job)
		}
	}
}

// EnqueueContext submits job, respecting ctx's deadline instead of blocking
// forever if the queue is full.
func (e *Enricher) EnqueueContext(ctx context.Context, job Job) bool {
	select {
	case e.queue <- job:
		return true
	case <-ctx.Done():
		e.log.Warn("enrichment queue full, dropping job under tick budget pressure",
			zap.String("incident_id", job.IncidentID))
		return false
	}
}

func (e *Enricher) process(parent context.Context, job Job) {
	ctx, cancel := context.WithTimeout(parent, e.timeout)
	defer cancel()

	text, err := e.client.Explain(ctx, llm.Request{
		Provider:             job.Provider,
		Country:              job.Country,
		AffectedTransactions: job.AffectedTransactions,
		RevenueAtRiskUSD:     job.RevenueAtRiskUSD,
		IssuerName:           job.IssuerName,
		SubStatuses:          job.SubStatuses,
		MostCommonCode:       job.MostCommonCode,
		MerchantAdviceCode:   job.MerchantAdviceCode,
	})

	var explanation *string
	status := models.EnrichmentFailed
	if err != nil {
		e.log.Warn("llm enrichment failed, notifying without explanation",
			zap.String("incident_id", job.IncidentID), zap.Error(err))
	} else {
		explanation = &text
		status = models.EnrichmentSucceeded
	}

	// Use a fresh, short-lived context for the write-back: the enrichment
	// call's own timeout must never prevent the incident from reaching
	// NOTIFIED.
	writeCtx, writeCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer writeCancel()

	if err := e.store.WriteEnrichment(writeCtx, job.IncidentID, explanation, status, nil); err != nil {
		e.log.Error("failed to write enrichment result", zap.String("incident_id", job.IncidentID), zap.Error(err))
	}
}
