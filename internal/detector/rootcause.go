package detector

import (
	"sort"

	"github.com/yuno/sentinel/internal/eventlog"
	"github.com/yuno/sentinel/internal/models"
)

// determineRootCause follows original_source/backend/worker.py's
// determine_root_cause priority order, supplemented into SPEC_FULL.md since
// spec.md §4.4.1 only names the response-code branch of suggested_action:
// a 401 response points at credential misconfiguration, 57 at a regulatory
// block, a single issuer with repeated errors is reported as an
// issuer-scoped cause, and anything else is attributed provider-wide by its
// most frequent code. The root cause does not change the suggested action,
// which determineSuggestedAction derives separately.
func determineRootCause(rule models.Rule, dim models.DimensionKey, breakdown map[string]int64, issuers []eventlog.IssuerStat) models.RootCause {
	code, _ := mostFrequentCode(breakdown)

	switch code {
	case "401":
		return models.RootCause{
			Provider:     rule.ProviderID,
			Issue:        "credential or merchant configuration failure",
			Scope:        string(dim),
			ResponseCode: strPtr(code),
		}
	case "57":
		return models.RootCause{
			Provider:     rule.ProviderID,
			Issue:        "regulatory or issuer block",
			Scope:        string(dim),
			ResponseCode: strPtr(code),
		}
	}

	if len(issuers) == 1 {
		return models.RootCause{
			Provider:     rule.ProviderID,
			Issue:        "single issuer concentrating nearly all failures",
			Scope:        issuers[0].IssuerName,
			ResponseCode: strPtrOrNil(code),
		}
	}

	return models.RootCause{
		Provider:     rule.ProviderID,
		Issue:        "provider-wide elevated failure rate",
		Scope:        string(dim),
		ResponseCode: strPtrOrNil(code),
	}
}

// determineSuggestedAction maps the dominant response code to a suggested
// remediation, then applies the merchant_advice_code majority override
// (SPEC_FULL.md's resolution of spec.md §9's Open Question #3: "only when
// it is the majority code", not unconditionally).
func determineSuggestedAction(breakdown map[string]int64, adviceCode string, adviceIsMajority bool) models.SuggestedAction {
	code, _ := mostFrequentCode(breakdown)

	action := models.SuggestedAction{Label: "Pause traffic temporarily", ActionType: "pause_traffic"}
	switch code {
	case "502", "503", "504":
		action = models.SuggestedAction{Label: "Increase timeout or failover", ActionType: "failover"}
	case "500":
		action = models.SuggestedAction{Label: "Contact provider", ActionType: "contact_provider"}
	}

	if adviceIsMajority && adviceCode == "TRY_AGAIN_LATER" {
		action = models.SuggestedAction{Label: "Pause Traffic", ActionType: "pause_traffic"}
	}
	return action
}

// mostFrequentCode returns the response code with the highest count in
// breakdown, breaking ties deterministically by code string so results are
// stable across ticks that see the same data.
func mostFrequentCode(breakdown map[string]int64) (string, int64) {
	if len(breakdown) == 0 {
		return "", 0
	}
	codes := make([]string, 0, len(breakdown))
	for c := range breakdown {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	best, bestCount := "", int64(-1)
	for _, c := range codes {
		if breakdown[c] > bestCount {
			best, bestCount = c, breakdown[c]
		}
	}
	return best, bestCount
}

func strPtr(s string) *string { return &s }

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
