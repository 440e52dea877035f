// Package ingestor implements the ingestion path: validate, persist to the
// Event Log, then fan out the bucketed counter increments, per spec.md §4.1.
package ingestor

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yuno/sentinel/internal/currency"
	"github.com/yuno/sentinel/internal/errs"
	"github.com/yuno/sentinel/internal/eventlog"
	"github.com/yuno/sentinel/internal/metricstore"
	"github.com/yuno/sentinel/internal/models"
)

var countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Ingestor validates and persists events, then updates sliding-window
// counters. Step (2), the counter fan-out, is best-effort: a failure there
// is logged but never fails the request once the Event Log append (step 1)
// has committed, per spec.md §4.1 ("the event log is the source of truth").
type Ingestor struct {
	events  *eventlog.Store
	metrics *metricstore.Store
	fx      *currency.Table
	log     *zap.Logger
}

// New builds an Ingestor from its three collaborators.
func New(events *eventlog.Store, metrics *metricstore.Store, fx *currency.Table, log *zap.Logger) *Ingestor {
	return &Ingestor{events: events, metrics: metrics, fx: fx, log: log}
}

// Ingest validates req and, if valid, durably records it and fans out the
// dimension-key counter increments. On validation failure the event is not
// written anywhere and the error is returned synchronously, per spec.md
// §4.1.
func (in *Ingestor) Ingest(ctx context.Context, req models.IngestRequest) (models.IngestResponse, error) {
	ev, err := in.validate(req)
	if err != nil {
		return models.IngestResponse{}, err
	}

	stored, err := in.events.Append(ctx, ev)
	if err != nil {
		return models.IngestResponse{}, err
	}

	in.incrementCounters(ctx, stored)

	return models.IngestResponse{EventID: stored.EventID, AcceptedAt: stored.ReceivedAt}, nil
}

func (in *Ingestor) validate(req models.IngestRequest) (models.Event, error) {
	if req.MerchantID == "" {
		return models.Event{}, errs.Validation("merchant_id", fmt.Errorf("required"))
	}
	if req.ProviderID == "" {
		return models.Event{}, errs.Validation("provider_id", fmt.Errorf("required"))
	}
	if !countryPattern.MatchString(req.Country) {
		return models.Event{}, errs.Validation("country", fmt.Errorf("must be two uppercase letters, got %q", req.Country))
	}

	status := models.Status(req.Status)
	if !models.ValidStatuses[status] {
		return models.Event{}, errs.Validation("status", fmt.Errorf("must be one of the closed set, got %q", req.Status))
	}

	if req.Amount.Value.IsNegative() {
		return models.Event{}, errs.Validation("amount.value", fmt.Errorf("must be non-negative"))
	}
	amountUSD, err := in.fx.ToUSD(req.Amount.Value, req.Amount.Currency)
	if err != nil {
		return models.Event{}, errs.Validation("amount.currency", err)
	}

	if req.LatencyMS < 0 {
		return models.Event{}, errs.Validation("latency_ms", fmt.Errorf("must be non-negative"))
	}

	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}

	return models.Event{
		EventID:            eventID,
		MerchantID:         req.MerchantID,
		ProviderID:         req.ProviderID,
		Country:            req.Country,
		Status:             status,
		SubStatus:          req.SubStatus,
		AmountUSD:          amountUSD,
		IssuerName:         req.IssuerName,
		CardBrand:          req.CardBrand,
		BIN:                req.BIN,
		ResponseCode:       req.ResponseCode,
		MerchantAdviceCode: req.MerchantAdviceCode,
		LatencyMS:          req.LatencyMS,
	}, nil
}

// incrementCounters fans out to every pre-declared dimension granularity
// plus the response-code side counters for ERROR events, per spec.md §4.1.
// Each increment carries its own timeout (500ms, per spec.md §5) and
// failures are logged, never propagated.
func (in *Ingestor) incrementCounters(parent context.Context, ev models.Event) {
	issuer := ""
	if ev.IssuerName != nil {
		issuer = *ev.IssuerName
	}

	for _, dim := range models.Granularities(ev.MerchantID, ev.Country, ev.ProviderID, issuer) {
		in.incr(parent, dim, string(ev.Status), ev.ReceivedAt)
	}

	if ev.Status == models.StatusError && ev.ResponseCode != nil {
		dim := models.ResponseCodeDimensionKey(ev.MerchantID, ev.Country, ev.ProviderID)
		in.incr(parent, dim, "rc:"+*ev.ResponseCode, ev.ReceivedAt)
	}
}

func (in *Ingestor) incr(parent context.Context, dim models.DimensionKey, suffix string, at time.Time) {
	ctx, cancel := context.WithTimeout(parent, 500*time.Millisecond)
	defer cancel()

	if err := in.metrics.Incr(ctx, dim, suffix, at, 1); err != nil {
		in.log.Warn("metric increment failed (non-fatal, event already durable)",
			zap.String("dimension_key", string(dim)),
			zap.String("suffix", suffix),
			zap.Error(err),
		)
	}
}
