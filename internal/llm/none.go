package llm

import (
	"context"
	"errors"
)

// ErrNoProvider is returned by NoneClient, which models LLM_PROVIDER=none —
// a deployment that runs the Detector/Enricher without incident enrichment
// (e.g. local development, no LLM credentials configured).
var ErrNoProvider = errors.New("llm: no provider configured")

// NoneClient always fails, driving every incident through the Enricher's
// retry-then-give-up path so the rest of the lifecycle is exercised
// identically whether or not an LLM is actually wired up.
type NoneClient struct{}

// Explain always returns ErrNoProvider.
func (NoneClient) Explain(ctx context.Context, req Request) (string, error) {
	return "", ErrNoProvider
}
