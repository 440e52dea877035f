package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClient struct {
	calls     int
	failUntil int // fail on calls 1..failUntil, succeed after
	err       error
}

func (f *fakeClient) Explain(ctx context.Context, req Request) (string, error) {
	f.calls++
	if f.calls <= f.failUntil {
		if f.err != nil {
			return "", f.err
		}
		return "", errors.New("transient failure")
	}
	return "ok", nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, Factor: 2}
}

func TestRetryingClientSucceedsAfterTransientFailures(t *testing.T) {
	fake := &fakeClient{failUntil: 2}
	client := NewRetryingClient(fake, fastPolicy())

	text, err := client.Explain(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Fatalf("got %q, want ok", text)
	}
	if fake.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", fake.calls)
	}
}

func TestRetryingClientGivesUpAfterMaxRetries(t *testing.T) {
	fake := &fakeClient{failUntil: 99}
	client := NewRetryingClient(fake, fastPolicy())

	_, err := client.Explain(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if fake.calls != 3 {
		t.Fatalf("expected exactly MaxRetries+1 = 3 calls, got %d", fake.calls)
	}
}

func TestRetryingClientStopsOnContextCancellation(t *testing.T) {
	fake := &fakeClient{failUntil: 99}
	policy := RetryPolicy{MaxRetries: 5, InitialBackoff: 50 * time.Millisecond, Factor: 2}
	client := NewRetryingClient(fake, policy)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Explain(ctx, Request{})
	if err == nil {
		t.Fatal("expected an error when the context is cancelled mid-backoff")
	}
	if fake.calls >= 6 {
		t.Fatalf("expected cancellation to cut retries short, got %d calls", fake.calls)
	}
}

func TestBuildPromptIncludesIssuerAndAdviceContext(t *testing.T) {
	req := Request{
		Provider:             "stripe",
		Country:              "MX",
		AffectedTransactions: 30,
		RevenueAtRiskUSD:     1200.50,
		IssuerName:           "bbva",
		MerchantAdviceCode:   "TRY_AGAIN_LATER",
		SubStatuses:          []string{"timeout"},
	}
	prompt := BuildPrompt(req)
	if !contains(prompt, "bbva") {
		t.Fatal("expected prompt to mention the issuer")
	}
	if !contains(prompt, "TRY_AGAIN_LATER") {
		t.Fatal("expected prompt to mention the advice code")
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
