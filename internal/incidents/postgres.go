// Package incidents is the durable Incident Store, per spec.md §3/§4.4.3.
// The Detector writes every state transition except one; the Enricher
// writes llm_explanation, enrichment_status, and suggested_action on an
// incident it was handed, plus that incident's move to NOTIFIED
// (WriteEnrichment) — the "field-scoped writer" spec.md §5 allows
// alongside the Detector's single-writer role.
package incidents

import (
	_ "embed"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yuno/sentinel/internal/errs"
	"github.com/yuno/sentinel/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Store is the Postgres-backed Incident Store.
type Store struct {
	pool *pgxpool.Pool

	lockConn *pgxpool.Conn // held for the lifetime of a successful advisory lock
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// FindActive returns the currently OPEN or ENRICHING (or NOTIFIED, which
// still counts as active per spec.md §4.4.3's diagram) incident for
// (ruleID, dim), if any.
func (s *Store) FindActive(ctx context.Context, ruleID string, dim models.DimensionKey) (*models.Incident, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT incident_id, rule_id, dimension_key, opened_at, last_evaluated_at, closed_at,
		       state, severity, observed_value, affected_transactions, revenue_at_risk_usd,
		       response_code_breakdown, root_cause, llm_explanation, enrichment_status,
		       suggested_action, sla_breach_countdown_secs
		FROM incidents
		WHERE rule_id = $1 AND dimension_key = $2 AND state IN ('OPEN','ENRICHING','NOTIFIED')
	`, ruleID, string(dim))

	inc, err := scanIncident(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("find active incident: %w", err))
	}
	return &inc, nil
}

// RecentlyClosed reports whether an incident for (ruleID, dim) reached
// RECOVERED within the cooldown window ending now — spec.md §4.4.1's
// cooldown check.
func (s *Store) RecentlyClosed(ctx context.Context, ruleID string, dim models.DimensionKey, cooldown time.Duration) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM incidents
		WHERE rule_id = $1 AND dimension_key = $2 AND state = 'RECOVERED'
		  AND closed_at >= $3
	`, ruleID, string(dim), time.Now().UTC().Add(-cooldown)).Scan(&count)
	if err != nil {
		return false, errs.Transient(fmt.Errorf("recently closed check: %w", err))
	}
	return count > 0, nil
}

// Create inserts a new OPEN incident. inc.SLABreachCountdownSecs is stored
// as given; the Detector sets it only for CRITICAL incidents (per
// SPEC_FULL.md's Open Question decision).
func (s *Store) Create(ctx context.Context, inc models.Incident) (models.Incident, error) {
	inc.State = models.StateOpen
	inc.EnrichmentStatus = models.EnrichmentPending
	if inc.ResponseCodeBreakdown == nil {
		inc.ResponseCodeBreakdown = map[string]int64{}
	}

	breakdownJSON, err := json.Marshal(inc.ResponseCodeBreakdown)
	if err != nil {
		return models.Incident{}, errs.Invariant(fmt.Errorf("marshal response code breakdown: %w", err))
	}
	rootCauseJSON, err := json.Marshal(inc.RootCause)
	if err != nil {
		return models.Incident{}, errs.Invariant(fmt.Errorf("marshal root cause: %w", err))
	}
	actionJSON, err := json.Marshal(inc.SuggestedAction)
	if err != nil {
		return models.Incident{}, errs.Invariant(fmt.Errorf("marshal suggested action: %w", err))
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO incidents (
			rule_id, dimension_key, opened_at, last_evaluated_at, state, severity,
			observed_value, affected_transactions, revenue_at_risk_usd,
			response_code_breakdown, root_cause, enrichment_status, suggested_action,
			sla_breach_countdown_secs
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (rule_id, dimension_key) WHERE state IN ('OPEN','ENRICHING','NOTIFIED')
		DO NOTHING
		RETURNING incident_id
	`,
		inc.RuleID, string(inc.DimensionKey), inc.OpenedAt, inc.LastEvaluatedAt, string(inc.State), string(inc.Severity),
		inc.ObservedValue, inc.AffectedTransactions, inc.RevenueAtRiskUSD,
		breakdownJSON, rootCauseJSON, string(inc.EnrichmentStatus), actionJSON,
		inc.SLABreachCountdownSecs,
	)
	if err := row.Scan(&inc.IncidentID); err != nil {
		if err == pgx.ErrNoRows {
			// Lost the race to a concurrent evaluation inserting the same
			// (rule_id, dimension_key) first — the dedup invariant held.
			existing, ferr := s.FindActive(ctx, inc.RuleID, inc.DimensionKey)
			if ferr != nil {
				return models.Incident{}, ferr
			}
			if existing != nil {
				return *existing, nil
			}
		}
		return models.Incident{}, errs.Transient(fmt.Errorf("insert incident: %w", err))
	}
	return inc, nil
}

// UpdateObserved refreshes an in-place OPEN/ENRICHING/NOTIFIED incident with
// newly observed values, per spec.md §4.4.1 ("update in place — do not
// create a duplicate").
func (s *Store) UpdateObserved(ctx context.Context, incidentID string, observedValue float64, affected int64, revenue decimal.Decimal, breakdown map[string]int64, evaluatedAt time.Time) error {
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return errs.Invariant(fmt.Errorf("marshal response code breakdown: %w", err))
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE incidents
		SET observed_value = $2, affected_transactions = $3, revenue_at_risk_usd = $4,
		    response_code_breakdown = $5, last_evaluated_at = $6
		WHERE incident_id = $1
	`, incidentID, observedValue, affected, revenue, breakdownJSON, evaluatedAt)
	if err != nil {
		return errs.Transient(fmt.Errorf("update observed: %w", err))
	}
	return nil
}

// TouchEvaluated bumps last_evaluated_at without changing any other field —
// used when a tick re-examines an incident but has nothing new to record.
func (s *Store) TouchEvaluated(ctx context.Context, incidentID string, evaluatedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE incidents SET last_evaluated_at = $2 WHERE incident_id = $1`, incidentID, evaluatedAt)
	if err != nil {
		return errs.Transient(fmt.Errorf("touch evaluated: %w", err))
	}
	return nil
}

// TransitionToEnriching moves an OPEN incident into ENRICHING, handing it
// off to the Enricher.
func (s *Store) TransitionToEnriching(ctx context.Context, incidentID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE incidents SET state = 'ENRICHING' WHERE incident_id = $1 AND state = 'OPEN'`, incidentID)
	if err != nil {
		return errs.Transient(fmt.Errorf("transition to enriching: %w", err))
	}
	return nil
}

// TransitionToRecovered closes an incident with state RECOVERED, per
// spec.md §4.4.2.
func (s *Store) TransitionToRecovered(ctx context.Context, incidentID string, closedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE incidents SET state = 'RECOVERED', closed_at = $2, last_evaluated_at = $2
		WHERE incident_id = $1
	`, incidentID, closedAt)
	if err != nil {
		return errs.Transient(fmt.Errorf("transition to recovered: %w", err))
	}
	return nil
}

// WriteEnrichment is the Enricher's sole write: llm_explanation,
// enrichment_status, and a transition to NOTIFIED, regardless of whether
// the LLM call succeeded — "enrichment failure must never block
// notification" (spec.md §4.5).
func (s *Store) WriteEnrichment(ctx context.Context, incidentID string, explanation *string, status models.EnrichmentStatus, action *models.SuggestedAction) error {
	var actionJSON []byte
	if action != nil {
		b, err := json.Marshal(action)
		if err != nil {
			return errs.Invariant(fmt.Errorf("marshal suggested action: %w", err))
		}
		actionJSON = b
	}

	var err error
	if actionJSON != nil {
		_, err = s.pool.Exec(ctx, `
			UPDATE incidents
			SET llm_explanation = $2, enrichment_status = $3, suggested_action = $4, state = 'NOTIFIED'
			WHERE incident_id = $1
		`, incidentID, explanation, string(status), actionJSON)
	} else {
		_, err = s.pool.Exec(ctx, `
			UPDATE incidents
			SET llm_explanation = $2, enrichment_status = $3, state = 'NOTIFIED'
			WHERE incident_id = $1
		`, incidentID, explanation, string(status))
	}
	if err != nil {
		return errs.Transient(fmt.Errorf("write enrichment: %w", err))
	}
	return nil
}

// CreateSuppressed records a SUPPRESSED marker for a rule re-firing within
// its cooldown window (spec.md §4.4.1). Suppressed markers are terminal and
// are not deduplicated against each other — every suppressed re-fire gets
// its own row for audit purposes.
func (s *Store) CreateSuppressed(ctx context.Context, ruleID string, dim models.DimensionKey, evaluatedAt time.Time) error {
	now := evaluatedAt
	_, err := s.pool.Exec(ctx, `
		INSERT INTO incidents (
			rule_id, dimension_key, opened_at, last_evaluated_at, closed_at, state, severity,
			observed_value, affected_transactions, revenue_at_risk_usd, enrichment_status
		) VALUES ($1,$2,$3,$3,$3,'SUPPRESSED','WARNING',0,0,0,'succeeded')
	`, ruleID, string(dim), now)
	if err != nil {
		return errs.Transient(fmt.Errorf("create suppressed marker: %w", err))
	}
	return nil
}

// List returns incidents opened at or after since, optionally filtered by
// state, newest first — backing GET /alerts.
func (s *Store) List(ctx context.Context, since time.Time, state *models.IncidentState, limit int) ([]models.Incident, error) {
	var rows pgx.Rows
	var err error
	base := `
		SELECT incident_id, rule_id, dimension_key, opened_at, last_evaluated_at, closed_at,
		       state, severity, observed_value, affected_transactions, revenue_at_risk_usd,
		       response_code_breakdown, root_cause, llm_explanation, enrichment_status,
		       suggested_action, sla_breach_countdown_secs
		FROM incidents
		WHERE opened_at >= $1`
	if state != nil {
		rows, err = s.pool.Query(ctx, base+` AND state = $2 ORDER BY opened_at DESC LIMIT $3`, since, string(*state), limit)
	} else {
		rows, err = s.pool.Query(ctx, base+` ORDER BY opened_at DESC LIMIT $2`, since, limit)
	}
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("list incidents: %w", err))
	}
	defer rows.Close()

	var out []models.Incident
	for rows.Next() {
		inc, err := scanIncidentRows(rows)
		if err != nil {
			return nil, errs.Transient(fmt.Errorf("scan incident row: %w", err))
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(row scanner) (models.Incident, error) {
	return scanIncidentRows(row)
}

func scanIncidentRows(row scanner) (models.Incident, error) {
	var inc models.Incident
	var state, severity, enrichmentStatus string
	var breakdownJSON, rootCauseJSON, actionJSON []byte

	err := row.Scan(
		&inc.IncidentID, &inc.RuleID, (*string)(&inc.DimensionKey), &inc.OpenedAt, &inc.LastEvaluatedAt, &inc.ClosedAt,
		&state, &severity, &inc.ObservedValue, &inc.AffectedTransactions, &inc.RevenueAtRiskUSD,
		&breakdownJSON, &rootCauseJSON, &inc.LLMExplanation, &enrichmentStatus,
		&actionJSON, &inc.SLABreachCountdownSecs,
	)
	if err != nil {
		return models.Incident{}, err
	}
	inc.State = models.IncidentState(state)
	inc.Severity = models.Severity(severity)
	inc.EnrichmentStatus = models.EnrichmentStatus(enrichmentStatus)

	if len(breakdownJSON) > 0 {
		_ = json.Unmarshal(breakdownJSON, &inc.ResponseCodeBreakdown)
	}
	if len(rootCauseJSON) > 0 {
		_ = json.Unmarshal(rootCauseJSON, &inc.RootCause)
	}
	if len(actionJSON) > 0 {
		_ = json.Unmarshal(actionJSON, &inc.SuggestedAction)
	}
	return inc, nil
}
