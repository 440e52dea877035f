package llm

import (
	"context"
	"time"
)

// RetryPolicy is the bounded-retry-with-exponential-backoff policy spec.md
// §4.5 mandates: at most maxRetries retries (2 by default), exponential
// backoff starting at initialBackoff (1s) with the given factor (2). This
// is a closed, fully-specified three-parameter loop — no generic retry
// library earns its weight here (see DESIGN.md).
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	Factor         float64
}

// DefaultRetryPolicy matches spec.md §4.5's defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, InitialBackoff: time.Second, Factor: 2}
}

// RetryingClient wraps a Client with RetryPolicy, retrying any error from
// the inner client up to MaxRetries times before giving up. It makes no
// further attempt once ctx is done (cancelled or past its deadline).
type RetryingClient struct {
	inner  Client
	policy RetryPolicy
}

// NewRetryingClient wraps inner with policy.
func NewRetryingClient(inner Client, policy RetryPolicy) *RetryingClient {
	return &RetryingClient{inner: inner, policy: policy}
}

// Explain calls inner.Explain, retrying on failure per the configured
// policy. No per-attempt deadline is added here: every attempt and backoff
// shares ctx's deadline, so a deadline the caller sets once bounds all
// attempts combined. A per-attempt bound, where there is one, comes from the
// inner client (the HTTP clients built by New use an http.Client Timeout).
func (r *RetryingClient) Explain(ctx context.Context, req Request) (string, error) {
	backoff := r.policy.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		text, err := r.inner.Explain(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == r.policy.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			break
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		backoff = time.Duration(float64(backoff) * r.policy.Factor)
	}

	return "", lastErr
}
