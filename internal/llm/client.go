// Package llm abstracts the LLM vendor call the Enricher makes to produce a
// human-readable incident explanation, per spec.md §4.5. The vendor itself
// is out of scope (spec.md §1); this package only defines the contract,
// bounded-timeout HTTP implementations wrapped in a bounded-retry client, and
// a NoneClient that always returns ErrNoProvider, following
// original_source/backend/llm_service.py's provider-abstraction shape
// (gemini | openai | none).
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Request carries the incident context the prompt is built from, matching
// original_source/backend/llm_service.py#_build_prompt's parameters.
type Request struct {
	Provider            string
	Country             string
	AffectedTransactions int64
	RevenueAtRiskUSD     float64
	IssuerName           string // empty if not issuer-specific
	SubStatuses          []string
	MostCommonCode       string
	MerchantAdviceCode   string
}

// Client generates a natural-language explanation for an incident.
type Client interface {
	Explain(ctx context.Context, req Request) (string, error)
}

// BuildPrompt renders the standard incident-explanation prompt, shared by
// every HTTP-backed provider implementation.
func BuildPrompt(req Request) string {
	issuerCtx := ""
	if req.IssuerName != "" {
		issuerCtx = " affecting " + req.IssuerName + " cardholders"
	}
	adviceCtx := ""
	if req.MerchantAdviceCode != "" {
		adviceCtx = "\nProvider advice: " + req.MerchantAdviceCode
	}
	subStatusCtx := ""
	if len(req.SubStatuses) > 0 {
		subStatusCtx = "\nError types: " + strings.Join(req.SubStatuses, ", ")
	}

	return fmt.Sprintf(
		"You are a payment systems expert analyzing a real-time anomaly.\n\n"+
			"**Incident Details:**\n"+
			"- Provider: %s\n"+
			"- Country: %s\n"+
			"- Affected Transactions: %d\n"+
			"- Revenue at Risk: $%.2f USD%s%s%s\n\n"+
			"**Task:**\n"+
			"Write a concise 2-3 sentence explanation for an operations team. Include:\n"+
			"1. What is happening (technical root cause)\n"+
			"2. Why it matters (business impact)\n"+
			"3. Recommended immediate action\n\n"+
			"Be specific, actionable, and avoid jargon. Focus on urgency and clarity.",
		req.Provider, req.Country, req.AffectedTransactions, req.RevenueAtRiskUSD,
		issuerCtx, subStatusCtx, adviceCtx,
	)
}
