package detector

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yuno/sentinel/internal/models"
)

// onConditionTrue runs when the rule's operator fires this tick: update an
// already-active incident in place, or run trend confirmation and (absent
// a cooldown) open a new one, per spec.md §4.4.1.
func (d *Detector) onConditionTrue(ctx context.Context, rule models.Rule, dim models.DimensionKey, now, windowStart time.Time, observed float64, c counts) error {
	existing, err := d.incidents.FindActive(ctx, rule.RuleID, dim)
	if err != nil {
		return err
	}
	affected := affectedTransactions(rule.MetricType, c)

	if existing != nil {
		revenue, breakdown, err := d.enrichmentFigures(ctx, rule, windowStart)
		if err != nil {
			return err
		}
		return d.incidents.UpdateObserved(ctx, existing.IncidentID, observed, affected, revenue, breakdown, now)
	}

	confirmed, err := d.confirmTrend(ctx, rule, windowStart, now)
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	cooldown := time.Duration(d.cfg.CooldownSeconds) * time.Second
	recentlyClosed, err := d.incidents.RecentlyClosed(ctx, rule.RuleID, dim, cooldown)
	if err != nil {
		return err
	}
	if recentlyClosed {
		return d.incidents.CreateSuppressed(ctx, rule.RuleID, dim, now)
	}

	return d.openIncident(ctx, rule, dim, now, windowStart, observed, affected)
}

// confirmTrend applies the anti-flap check: for rate metrics, the
// condition must hold in at least trendConfirmationFraction of the
// one-minute sub-windows that saw any traffic, and the absolute adverse
// count across the window must clear MinConsecutiveErrors. TOTAL_VOLUME's
// window is already a single one-minute sub-window, so there is nothing to
// confirm against — the tick's own observation is authoritative.
func (d *Detector) confirmTrend(ctx context.Context, rule models.Rule, from, to time.Time) (bool, error) {
	if rule.MetricType == models.MetricTotalVolume {
		return true, nil
	}

	minutes, err := d.events.MinuteCounts(ctx, rule.MerchantScope(), rule.Country, rule.ProviderID, adverseStatusesFor(rule.MetricType), d.cfg.WindowMinutesRate)
	if err != nil {
		return false, err
	}

	var withTraffic, satisfied int
	var adverseTotal int64
	for _, mc := range minutes {
		adverseTotal += mc.Adverse
		if mc.Total == 0 {
			continue
		}
		withTraffic++
		ratio := float64(mc.Adverse) / float64(mc.Total)
		if rule.MetricType == models.MetricApprovalRate {
			// Adverse counts declines and errors; the rule compares the approval share.
			ratio = 1 - ratio
		}
		if rule.Operator.Evaluate(ratio, rule.Threshold) {
			satisfied++
		}
	}

	if withTraffic == 0 {
		return false, nil
	}
	if float64(satisfied)/float64(withTraffic) < trendConfirmationFraction {
		return false, nil
	}
	return adverseTotal >= int64(d.cfg.MinConsecutiveErrors), nil
}

func (d *Detector) openIncident(ctx context.Context, rule models.Rule, dim models.DimensionKey, now, windowStart time.Time, observed float64, affected int64) error {
	revenue, breakdown, err := d.enrichmentFigures(ctx, rule, windowStart)
	if err != nil {
		return err
	}
	issuers, err := d.events.IssuerErrorBreakdown(ctx, rule.MerchantScope(), rule.Country, rule.ProviderID, windowStart)
	if err != nil {
		return err
	}
	adviceCode, adviceIsMajority, err := d.events.MajorityAdviceCode(ctx, rule.MerchantScope(), rule.Country, rule.ProviderID, windowStart)
	if err != nil {
		return err
	}

	severity := rule.Severity
	if rule.MetricType == models.MetricErrorRate && observed > 0.30 {
		severity = models.SeverityCritical
	}

	var slaCountdown *int64
	if severity == models.SeverityCritical {
		slaCountdown = d.slaBreachCountdown(ctx, rule.MerchantScope(), now)
	}

	inc := models.Incident{
		RuleID:                rule.RuleID,
		DimensionKey:          dim,
		OpenedAt:              now,
		LastEvaluatedAt:       now,
		Severity:              severity,
		ObservedValue:         observed,
		AffectedTransactions:  affected,
		RevenueAtRiskUSD:      revenue,
		ResponseCodeBreakdown: breakdown,
		RootCause:             determineRootCause(rule, dim, breakdown, issuers),
		SuggestedAction:       determineSuggestedAction(breakdown, adviceCode, adviceIsMajority),
		SLABreachCountdownSecs: slaCountdown,
	}

	created, err := d.incidents.Create(ctx, inc)
	if err != nil {
		return err
	}
	if created.State != models.StateOpen {
		// Lost the race to a concurrent tick/instance; the dedup invariant
		// held and there is nothing further for this tick to do.
		return nil
	}

	if err := d.incidents.TransitionToEnriching(ctx, created.IncidentID); err != nil {
		return err
	}

	d.enricher.EnqueueContext(ctx, enricherJob(created, rule, adviceCode))
	return nil
}

// enrichmentFigures computes revenue-at-risk and the response-code
// breakdown directly from the Event Log, per spec.md §4.4.1 ("queried from
// the Event Log, not the Metric Store").
func (d *Detector) enrichmentFigures(ctx context.Context, rule models.Rule, windowStart time.Time) (revenue decimal.Decimal, breakdown map[string]int64, err error) {
	sum, err := d.events.SumAdverseUSD(ctx, rule.MerchantScope(), rule.Country, rule.ProviderID, adverseStatusesFor(rule.MetricType), windowStart)
	if err != nil {
		return decimal.Zero, nil, err
	}
	breakdown, err = d.events.ResponseCodeBreakdown(ctx, rule.MerchantScope(), rule.Country, rule.ProviderID, windowStart)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return sum, breakdown, nil
}

func (d *Detector) slaBreachCountdown(ctx context.Context, merchantID string, now time.Time) *int64 {
	baseline, err := d.ruleStore.Baseline(ctx, merchantID)
	if err != nil {
		d.log.Warn("sla baseline lookup failed, omitting countdown", zap.String("merchant_id", merchantID), zap.Error(err))
		return nil
	}
	slaSeconds := int64(baseline.SLAMinutes) * 60
	remaining := slaSeconds
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}
