package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncidentState is the state machine in spec.md §4.4.3.
type IncidentState string

const (
	StateOpen       IncidentState = "OPEN"
	StateEnriching  IncidentState = "ENRICHING"
	StateNotified   IncidentState = "NOTIFIED"
	StateRecovered  IncidentState = "RECOVERED"
	StateSuppressed IncidentState = "SUPPRESSED"
)

// EnrichmentStatus is the machine-readable field the alerts endpoint
// exposes alongside a possibly-nil llm_explanation, per spec.md §7.
type EnrichmentStatus string

const (
	EnrichmentPending   EnrichmentStatus = "pending"
	EnrichmentSucceeded EnrichmentStatus = "succeeded"
	EnrichmentFailed    EnrichmentStatus = "failed"
)

// RootCause is a structured scope description, following
// original_source/backend/worker.py#determine_root_cause's shape.
type RootCause struct {
	Provider     string  `json:"provider"`
	Issue        string  `json:"issue"`
	Scope        string  `json:"scope"`
	ResponseCode *string `json:"response_code,omitempty"`
}

// SuggestedAction is a structured recommendation attached to an incident.
type SuggestedAction struct {
	Label      string `json:"label"`
	ActionType string `json:"action_type"`
}

// Incident is the stateful record for an active or past alert episode,
// per spec.md §3. One logical incident per (RuleID, DimensionKey) may be
// OPEN, ENRICHING or NOTIFIED at any instant — enforced by the incident
// store's partial unique index, not by this type.
type Incident struct {
	IncidentID              string
	RuleID                  string
	DimensionKey            DimensionKey
	OpenedAt                time.Time
	LastEvaluatedAt         time.Time
	ClosedAt                *time.Time
	State                   IncidentState
	Severity                Severity
	ObservedValue           float64
	AffectedTransactions    int64
	RevenueAtRiskUSD        decimal.Decimal
	ResponseCodeBreakdown   map[string]int64
	RootCause               RootCause
	LLMExplanation          *string
	EnrichmentStatus        EnrichmentStatus
	SuggestedAction         SuggestedAction
	SLABreachCountdownSecs  *int64
}

// IsActive reports whether the incident counts toward "active totals" per
// spec.md §4.4.2 (RECOVERED and SUPPRESSED are excluded).
func (i Incident) IsActive() bool {
	return i.State == StateOpen || i.State == StateEnriching || i.State == StateNotified
}
