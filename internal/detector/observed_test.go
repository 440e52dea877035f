package detector

import (
	"testing"

	"github.com/yuno/sentinel/internal/models"
)

func TestObservedValueErrorRate(t *testing.T) {
	c := counts{approved: 70, declined: 10, errored: 20}
	observed, guardTotal := observedValue(models.MetricErrorRate, c)
	if guardTotal != 100 {
		t.Fatalf("guardTotal = %d, want 100", guardTotal)
	}
	if observed != 0.2 {
		t.Fatalf("observed = %v, want 0.2", observed)
	}
}

func TestObservedValueExcludesRejectedAndCreatedFromRateDenominator(t *testing.T) {
	c := counts{approved: 90, declined: 5, errored: 5, rejected: 50, created: 50}
	_, guardTotal := observedValue(models.MetricApprovalRate, c)
	if guardTotal != 100 {
		t.Fatalf("guardTotal = %d, want 100 (rejected/created excluded)", guardTotal)
	}
}

func TestObservedValueTotalVolumeIncludesEverything(t *testing.T) {
	c := counts{approved: 10, declined: 10, errored: 10, rejected: 10, created: 10}
	observed, guardTotal := observedValue(models.MetricTotalVolume, c)
	if observed != 50 || guardTotal != 50 {
		t.Fatalf("observed=%v guardTotal=%d, want 50/50", observed, guardTotal)
	}
}

func TestObservedValueZeroDenominatorIsZero(t *testing.T) {
	observed, guardTotal := observedValue(models.MetricErrorRate, counts{})
	if observed != 0 || guardTotal != 0 {
		t.Fatalf("observed=%v guardTotal=%d, want 0/0", observed, guardTotal)
	}
}

func TestAffectedTransactionsMatchesScenario2(t *testing.T) {
	// spec.md §8 scenario 2: 30 ERROR events over the window should report
	// affected_transactions=30 for an ERROR_RATE rule.
	c := counts{approved: 70, errored: 30}
	if got := affectedTransactions(models.MetricErrorRate, c); got != 30 {
		t.Fatalf("affectedTransactions = %d, want 30", got)
	}
}

func TestAffectedTransactionsApprovalRateIsComplement(t *testing.T) {
	c := counts{approved: 50, declined: 30, errored: 20}
	if got := affectedTransactions(models.MetricApprovalRate, c); got != 50 {
		t.Fatalf("affectedTransactions = %d, want 50 (declined+errored)", got)
	}
}

func TestIsAdverse(t *testing.T) {
	if !isAdverse(models.StatusError, models.MetricErrorRate) {
		t.Fatal("ERROR should be adverse for ERROR_RATE")
	}
	if isAdverse(models.StatusSucceeded, models.MetricErrorRate) {
		t.Fatal("SUCCEEDED should not be adverse for ERROR_RATE")
	}
	if !isAdverse(models.StatusCreated, models.MetricTotalVolume) {
		t.Fatal("every status counts as adverse for TOTAL_VOLUME")
	}
}
