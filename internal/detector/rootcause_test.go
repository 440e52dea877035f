package detector

import (
	"testing"

	"github.com/yuno/sentinel/internal/eventlog"
	"github.com/yuno/sentinel/internal/models"
)

func TestDetermineRootCauseCredentialFailure(t *testing.T) {
	rule := models.Rule{ProviderID: "stripe"}
	rc := determineRootCause(rule, "m1/MX/stripe/_", map[string]int64{"401": 40}, nil)
	if rc.Issue != "credential or merchant configuration failure" {
		t.Fatalf("got %q", rc.Issue)
	}
	if rc.ResponseCode == nil || *rc.ResponseCode != "401" {
		t.Fatal("expected response code 401 to be attached")
	}
}

func TestDetermineRootCauseRegulatoryBlock(t *testing.T) {
	rule := models.Rule{ProviderID: "stripe"}
	rc := determineRootCause(rule, "m1/MX/stripe/_", map[string]int64{"57": 12}, nil)
	if rc.Issue != "regulatory or issuer block" {
		t.Fatalf("got %q", rc.Issue)
	}
}

func TestDetermineRootCauseSingleIssuer(t *testing.T) {
	rule := models.Rule{ProviderID: "stripe"}
	issuers := []eventlog.IssuerStat{{IssuerName: "bbva", ErrorCount: 40}}
	rc := determineRootCause(rule, "m1/MX/stripe/_", map[string]int64{"05": 40}, issuers)
	if rc.Issue != "single issuer concentrating nearly all failures" {
		t.Fatalf("got %q", rc.Issue)
	}
	if rc.Scope != "bbva" {
		t.Fatalf("expected scope to be the issuer name, got %q", rc.Scope)
	}
}

func TestDetermineRootCauseProviderWideFallback(t *testing.T) {
	rule := models.Rule{ProviderID: "stripe"}
	issuers := []eventlog.IssuerStat{{IssuerName: "bbva"}, {IssuerName: "santander"}}
	rc := determineRootCause(rule, "m1/MX/stripe/_", map[string]int64{"05": 40}, issuers)
	if rc.Issue != "provider-wide elevated failure rate" {
		t.Fatalf("got %q", rc.Issue)
	}
}

func TestDetermineSuggestedActionFailover(t *testing.T) {
	action := determineSuggestedAction(map[string]int64{"503": 30}, "", false)
	if action.ActionType != "failover" {
		t.Fatalf("got %q", action.ActionType)
	}
}

func TestDetermineSuggestedActionContactProvider(t *testing.T) {
	action := determineSuggestedAction(map[string]int64{"500": 30}, "", false)
	if action.ActionType != "contact_provider" {
		t.Fatalf("got %q", action.ActionType)
	}
}

func TestDetermineSuggestedActionDefaultPauseTraffic(t *testing.T) {
	action := determineSuggestedAction(map[string]int64{"05": 30}, "", false)
	if action.ActionType != "pause_traffic" {
		t.Fatalf("got %q", action.ActionType)
	}
}

func TestDetermineSuggestedActionAdviceCodeOverrideRequiresMajority(t *testing.T) {
	// Present but not the majority advice code: does not override.
	nonMajority := determineSuggestedAction(map[string]int64{"503": 30}, "TRY_AGAIN_LATER", false)
	if nonMajority.ActionType != "failover" {
		t.Fatalf("non-majority advice code should not override, got %q", nonMajority.ActionType)
	}

	majority := determineSuggestedAction(map[string]int64{"503": 30}, "TRY_AGAIN_LATER", true)
	if majority.Label != "Pause Traffic" {
		t.Fatalf("majority TRY_AGAIN_LATER should override to Pause Traffic, got %q", majority.Label)
	}
}

func TestMostFrequentCodeDeterministicTieBreak(t *testing.T) {
	code, count := mostFrequentCode(map[string]int64{"503": 10, "500": 10})
	if code != "500" {
		t.Fatalf("expected the lexicographically smaller code to win ties, got %q", code)
	}
	if count != 10 {
		t.Fatalf("count = %d, want 10", count)
	}
}

func TestMostFrequentCodeEmpty(t *testing.T) {
	code, count := mostFrequentCode(nil)
	if code != "" || count != 0 {
		t.Fatalf("got (%q, %d), want (\"\", 0)", code, count)
	}
}
