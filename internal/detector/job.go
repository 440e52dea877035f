package detector

import (
	"github.com/yuno/sentinel/internal/enricher"
	"github.com/yuno/sentinel/internal/models"
)

// enricherJob builds the Enricher's job payload from a freshly-opened
// incident and the rule that triggered it. adviceCode is the
// merchant_advice_code majority figure computed while opening the incident
// (empty if none was a majority).
func enricherJob(inc models.Incident, rule models.Rule, adviceCode string) enricher.Job {
	code, _ := mostFrequentCode(inc.ResponseCodeBreakdown)
	revenue, _ := inc.RevenueAtRiskUSD.Float64()

	return enricher.Job{
		IncidentID:           inc.IncidentID,
		Provider:             rule.ProviderID,
		Country:              rule.Country,
		AffectedTransactions: inc.AffectedTransactions,
		RevenueAtRiskUSD:     revenue,
		IssuerName:           rule.IssuerName,
		SubStatuses:          []string{inc.RootCause.Issue},
		MostCommonCode:       code,
		MerchantAdviceCode:   adviceCode,
	}
}
