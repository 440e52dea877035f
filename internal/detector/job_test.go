package detector

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yuno/sentinel/internal/models"
)

func TestEnricherJobCarriesIncidentAndRuleFields(t *testing.T) {
	inc := models.Incident{
		IncidentID:            "inc-1",
		AffectedTransactions:  30,
		RevenueAtRiskUSD:      decimal.NewFromInt(500),
		ResponseCodeBreakdown: map[string]int64{"503": 30},
		RootCause:             models.RootCause{Issue: "provider-wide elevated failure rate"},
	}
	rule := models.Rule{ProviderID: "stripe", Country: "MX", IssuerName: "bbva"}

	job := enricherJob(inc, rule, "TRY_AGAIN_LATER")

	if job.IncidentID != "inc-1" {
		t.Fatalf("got IncidentID %q", job.IncidentID)
	}
	if job.Provider != "stripe" || job.Country != "MX" || job.IssuerName != "bbva" {
		t.Fatalf("expected rule fields to be carried over, got %+v", job)
	}
	if job.AffectedTransactions != 30 {
		t.Fatalf("got AffectedTransactions %d, want 30", job.AffectedTransactions)
	}
	if job.RevenueAtRiskUSD != 500 {
		t.Fatalf("got RevenueAtRiskUSD %v, want 500", job.RevenueAtRiskUSD)
	}
	if job.MostCommonCode != "503" {
		t.Fatalf("got MostCommonCode %q, want 503", job.MostCommonCode)
	}
	if job.MerchantAdviceCode != "TRY_AGAIN_LATER" {
		t.Fatalf("got MerchantAdviceCode %q", job.MerchantAdviceCode)
	}
	if len(job.SubStatuses) != 1 || job.SubStatuses[0] != "provider-wide elevated failure rate" {
		t.Fatalf("got SubStatuses %v", job.SubStatuses)
	}
}
