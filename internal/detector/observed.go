package detector

import "github.com/yuno/sentinel/internal/models"

// counts is the per-status event tally over a window, read from the Metric
// Store's bucketed counters.
type counts struct {
	approved, declined, errored, rejected, created int64
}

// adverseStatusesFor returns which statuses count as "adverse" for metric —
// the numerator of its rate, or (for TOTAL_VOLUME) every status, since
// volume has no notion of adverse/non-adverse outcomes.
func adverseStatusesFor(metric models.MetricType) []models.Status {
	switch metric {
	case models.MetricErrorRate:
		return []models.Status{models.StatusError}
	case models.MetricDeclineRate:
		return []models.Status{models.StatusDeclined}
	case models.MetricApprovalRate:
		return []models.Status{models.StatusDeclined, models.StatusError}
	default: // TOTAL_VOLUME
		return []models.Status{models.StatusCreated, models.StatusSucceeded, models.StatusDeclined, models.StatusError, models.StatusRejected}
	}
}

// rateDenominator excludes REJECTED and CREATED events from the denominator
// of every rate metric — SPEC_FULL.md's resolution of spec.md §9's Open
// Question #2 ("a reasonable default is to exclude them from total"),
// extended to also exclude CREATED since it denotes a transaction that has
// not yet reached a terminal outcome.
func (c counts) rateDenominator() int64 {
	return c.approved + c.declined + c.errored
}

// totalVolume counts every event regardless of outcome — REJECTED events
// are excluded from rate denominators but still counted here, per the same
// Open Question resolution.
func (c counts) totalVolume() int64 {
	return c.approved + c.declined + c.errored + c.rejected + c.created
}

// observedValue computes the metric's observed value and the transaction
// count the Detector's min_transactions guard clause applies to.
func observedValue(metric models.MetricType, c counts) (observed float64, guardTotal int64) {
	switch metric {
	case models.MetricApprovalRate:
		denom := c.rateDenominator()
		if denom == 0 {
			return 0, 0
		}
		return float64(c.approved) / float64(denom), denom
	case models.MetricErrorRate:
		denom := c.rateDenominator()
		if denom == 0 {
			return 0, 0
		}
		return float64(c.errored) / float64(denom), denom
	case models.MetricDeclineRate:
		denom := c.rateDenominator()
		if denom == 0 {
			return 0, 0
		}
		return float64(c.declined) / float64(denom), denom
	default: // TOTAL_VOLUME
		total := c.totalVolume()
		return float64(total), total
	}
}

// affectedTransactions is the count of transactions the incident attributes
// the anomaly to — the rate's numerator, generalized to the complement for
// APPROVAL_RATE (a low approval rate is "caused by" the declines and
// errors, not the approvals). Matches spec.md §8 scenario 2 literally: an
// ERROR_RATE incident over 30 ERROR events reports affected_transactions=30.
func affectedTransactions(metric models.MetricType, c counts) int64 {
	switch metric {
	case models.MetricErrorRate:
		return c.errored
	case models.MetricDeclineRate:
		return c.declined
	case models.MetricApprovalRate:
		return c.declined + c.errored
	default:
		return c.totalVolume()
	}
}

func isAdverse(status models.Status, metric models.MetricType) bool {
	for _, s := range adverseStatusesFor(metric) {
		if s == status {
			return true
		}
	}
	return false
}
