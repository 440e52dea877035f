package detector

import (
	"context"
	"time"

	"github.com/yuno/sentinel/internal/models"
)

// checkRecovery runs when a rule's operator evaluates false this tick: any
// OPEN/ENRICHING/NOTIFIED incident in this dimension is examined for
// recovery, per spec.md §4.4.2.
func (d *Detector) checkRecovery(ctx context.Context, rule models.Rule, dim models.DimensionKey, now time.Time, merchantScope string) error {
	existing, err := d.incidents.FindActive(ctx, rule.RuleID, dim)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	recovered, err := d.hasRecovered(ctx, rule, dim, merchantScope)
	if err != nil {
		return err
	}
	if recovered {
		return d.incidents.TransitionToRecovered(ctx, existing.IncidentID, now)
	}
	return d.incidents.TouchEvaluated(ctx, existing.IncidentID, now)
}

// hasRecovered implements spec.md §4.4.2's recovery test: for rate metrics,
// at least RecoveryThreshold consecutive events in reverse chronological
// order must be non-adverse (SUCCEEDED). TOTAL_VOLUME has no notion of a
// "non-adverse event" — recovery instead means the most recent one-minute
// window's total has climbed back past the rule's threshold.
func (d *Detector) hasRecovered(ctx context.Context, rule models.Rule, dim models.DimensionKey, merchantScope string) (bool, error) {
	if rule.MetricType == models.MetricTotalVolume {
		now := time.Now().UTC()
		var total int64
		for _, st := range []models.Status{models.StatusSucceeded, models.StatusDeclined, models.StatusError, models.StatusRejected, models.StatusCreated} {
			n, err := d.metrics.RangeSum(ctx, dim, string(st), now.Add(-time.Minute), now)
			if err != nil {
				return false, err
			}
			total += n
		}
		return float64(total) > rule.Threshold, nil
	}

	statuses, err := d.events.RecentStatuses(ctx, merchantScope, rule.Country, rule.ProviderID, d.cfg.RecoveryThreshold)
	if err != nil {
		return false, err
	}
	if len(statuses) < d.cfg.RecoveryThreshold {
		return false, nil
	}
	for _, st := range statuses {
		if st != models.StatusSucceeded {
			return false, nil
		}
	}
	return true, nil
}
