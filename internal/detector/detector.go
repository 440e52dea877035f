// Package detector is the periodic rule-evaluation engine: it sums
// counters over each active rule's window, runs trend confirmation and
// recovery checks, and owns every incident state transition except the
// Enricher's field-scoped write, per spec.md §4.4.
package detector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yuno/sentinel/internal/enricher"
	"github.com/yuno/sentinel/internal/eventlog"
	"github.com/yuno/sentinel/internal/incidents"
	"github.com/yuno/sentinel/internal/metricstore"
	"github.com/yuno/sentinel/internal/models"
	"github.com/yuno/sentinel/internal/rules"
)

// trendConfirmationFraction is the 60% sub-window threshold spec.md §4.4.1
// names ("the condition must have been true in ≥ 60% of sub-windows").
const trendConfirmationFraction = 0.6

// tickBudget bounds a single tick, per spec.md §5 ("detector tick total
// budget 8 s (< 10 s tick interval)").
const tickBudget = 8 * time.Second

// Config is the subset of runtime tuning the Detector needs, read once at
// startup from the loaded Config.
type Config struct {
	WindowMinutesRate    int
	MinConsecutiveErrors int
	RecoveryThreshold    int
	CooldownSeconds      int
	TickInterval         time.Duration
}

// Detector owns the tick loop. It reads through a Rule Registry snapshot,
// queries the Metric Store for window sums and the Event Log for the
// precise figures only a full scan can answer, and writes every state
// transition through the Incident Store.
type Detector struct {
	snapshot   *rules.Snapshot
	ruleStore  *rules.Store
	incidents  *incidents.Store
	metrics    *metricstore.Store
	events     *eventlog.Store
	enricher   *enricher.Enricher
	cfg        Config
	log        *zap.Logger
}

// New builds a Detector from its collaborators.
func New(snapshot *rules.Snapshot, ruleStore *rules.Store, incidentStore *incidents.Store, metrics *metricstore.Store, events *eventlog.Store, enr *enricher.Enricher, cfg Config, log *zap.Logger) *Detector {
	return &Detector{
		snapshot:  snapshot,
		ruleStore: ruleStore,
		incidents: incidentStore,
		metrics:   metrics,
		events:    events,
		enricher:  enr,
		cfg:       cfg,
		log:       log,
	}
}

// Run drives the tick loop until ctx is cancelled. Ticks never overlap: the
// loop body runs synchronously inside the select, so a slow tick simply
// delays the next one rather than racing it (spec.md §5: "overlapping
// ticks are forbidden").
func (d *Detector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Detector) tick(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, tickBudget)
	defer cancel()

	now := time.Now().UTC()
	for _, rule := range d.snapshot.Rules() {
		if !rule.Active {
			continue
		}
		if err := d.evaluateRule(ctx, rule, now); err != nil {
			d.log.Warn("rule evaluation failed, will retry next tick",
				zap.String("rule_id", rule.RuleID), zap.Error(err))
		}
	}
}

func (d *Detector) evaluateRule(ctx context.Context, rule models.Rule, now time.Time) error {
	merchantScope := rule.MerchantScope()
	dim := rule.DimensionKey(merchantScope)

	window := time.Duration(d.cfg.WindowMinutesRate) * time.Minute
	if rule.MetricType == models.MetricTotalVolume {
		window = time.Minute
	}
	from := now.Add(-window)

	c, err := d.sumCounts(ctx, dim, rule.MetricType, from, now)
	if err != nil {
		return err
	}

	observed, guardTotal := observedValue(rule.MetricType, c)

	// Guard clauses, evaluated in order (spec.md §4.4 step 4): first failure
	// skips the rule for this tick entirely, leaving any existing incident
	// untouched until traffic (or the clock) allows re-evaluation.
	if guardTotal < rule.MinTransactions {
		return nil
	}
	if !rule.InTimeWindow(now.Hour()) {
		return nil
	}

	if rule.Operator.Evaluate(observed, rule.Threshold) {
		return d.onConditionTrue(ctx, rule, dim, now, from, observed, c)
	}
	return d.checkRecovery(ctx, rule, dim, now, merchantScope)
}

// sumCounts reads the per-status window sums from the Metric Store. Rate
// metrics only need the three terminal-outcome suffixes; TOTAL_VOLUME also
// needs REJECTED and CREATED since they contribute to volume but not to
// any rate's denominator.
func (d *Detector) sumCounts(ctx context.Context, dim models.DimensionKey, metric models.MetricType, from, to time.Time) (counts, error) {
	var c counts
	var err error

	if c.approved, err = d.metrics.RangeSum(ctx, dim, string(models.StatusSucceeded), from, to); err != nil {
		return counts{}, err
	}
	if c.declined, err = d.metrics.RangeSum(ctx, dim, string(models.StatusDeclined), from, to); err != nil {
		return counts{}, err
	}
	if c.errored, err = d.metrics.RangeSum(ctx, dim, string(models.StatusError), from, to); err != nil {
		return counts{}, err
	}
	if metric == models.MetricTotalVolume {
		if c.rejected, err = d.metrics.RangeSum(ctx, dim, string(models.StatusRejected), from, to); err != nil {
			return counts{}, err
		}
		if c.created, err = d.metrics.RangeSum(ctx, dim, string(models.StatusCreated), from, to); err != nil {
			return counts{}, err
		}
	}
	return c, nil
}
