// Package rules is the Rule Registry: CRUD over Rule entities plus the
// periodically-refreshed snapshot the Detector evaluates against, per
// spec.md §4.3. Table shape follows original_source/backend/database.py's
// get_alert_rules query and manage_alert_rules.py's schema, extended with
// the fields spec.md's Rule type requires (metric_type, operator,
// time window, severity, issuer filter).
package rules

import (
	_ "embed"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yuno/sentinel/internal/errs"
	"github.com/yuno/sentinel/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Store is the Postgres-backed Rule Registry.
type Store struct {
	pool *pgxpool.Pool
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

// Create inserts a new rule and returns its generated RuleID.
func (s *Store) Create(ctx context.Context, req models.RuleCreateRequest) (models.Rule, error) {
	metricType := models.MetricType(req.MetricType)
	switch metricType {
	case models.MetricApprovalRate, models.MetricErrorRate, models.MetricDeclineRate, models.MetricTotalVolume:
	default:
		return models.Rule{}, errs.Validation("metric_type", fmt.Errorf("unsupported metric_type %q", req.MetricType))
	}

	op := models.Operator(req.Operator)
	switch op {
	case models.OpLessThan, models.OpGreaterThan, models.OpLessOrEqual, models.OpGreaterOrEqual:
	default:
		return models.Rule{}, errs.Validation("operator", fmt.Errorf("unsupported operator %q", req.Operator))
	}

	severity := models.Severity(req.Severity)
	switch severity {
	case models.SeverityWarning, models.SeverityCritical:
	default:
		return models.Rule{}, errs.Validation("severity", fmt.Errorf("unsupported severity %q", req.Severity))
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO alert_rules (
			merchant_id, filter_country, filter_provider, filter_issuer,
			metric_type, operator, threshold, min_transactions,
			start_hour, end_hour, severity, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,TRUE)
		RETURNING rule_id, created_at
	`, req.MerchantID, req.Country, req.ProviderID, req.IssuerName,
		string(metricType), string(op), req.Threshold, req.MinTransactions,
		req.StartHour, req.EndHour, string(severity))

	rule := models.Rule{
		MerchantID:      req.MerchantID,
		Country:         req.Country,
		ProviderID:      req.ProviderID,
		IssuerName:      req.IssuerName,
		MetricType:      metricType,
		Operator:        op,
		Threshold:       req.Threshold,
		MinTransactions: req.MinTransactions,
		StartHour:       req.StartHour,
		EndHour:         req.EndHour,
		Severity:        severity,
		Active:          true,
	}
	if err := row.Scan(&rule.RuleID, &rule.CreatedAt); err != nil {
		return models.Rule{}, errs.Transient(fmt.Errorf("insert rule: %w", err))
	}
	return rule, nil
}

// List returns every rule, active and inactive, newest first.
func (s *Store) List(ctx context.Context) ([]models.Rule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rule_id, merchant_id, filter_country, filter_provider, filter_issuer,
		       metric_type, operator, threshold, min_transactions,
		       start_hour, end_hour, severity, is_active, created_at
		FROM alert_rules
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("list rules: %w", err))
	}
	defer rows.Close()

	return scanRules(rows)
}

// ListActive returns only active rules — the snapshot the Detector consumes.
func (s *Store) ListActive(ctx context.Context) ([]models.Rule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rule_id, merchant_id, filter_country, filter_provider, filter_issuer,
		       metric_type, operator, threshold, min_transactions,
		       start_hour, end_hour, severity, is_active, created_at
		FROM alert_rules
		WHERE is_active = TRUE
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("list active rules: %w", err))
	}
	defer rows.Close()

	return scanRules(rows)
}

func scanRules(rows pgx.Rows) ([]models.Rule, error) {
	var out []models.Rule
	for rows.Next() {
		var r models.Rule
		var metricType, operator, severity string
		if err := rows.Scan(
			&r.RuleID, &r.MerchantID, &r.Country, &r.ProviderID, &r.IssuerName,
			&metricType, &operator, &r.Threshold, &r.MinTransactions,
			&r.StartHour, &r.EndHour, &severity, &r.Active, &r.CreatedAt,
		); err != nil {
			return nil, errs.Transient(fmt.Errorf("scan rule row: %w", err))
		}
		r.MetricType = models.MetricType(metricType)
		r.Operator = models.Operator(operator)
		r.Severity = models.Severity(severity)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SoftDelete sets active=false. Historical incidents keep referencing the
// rule by RuleID regardless (spec.md §4.3).
func (s *Store) SoftDelete(ctx context.Context, ruleID string) error {
	return s.SetActive(ctx, ruleID, false)
}

// SetActive flips is_active, backing both rulesctl's enable and disable
// commands (original_source/backend/manage_alert_rules.py treats both as
// the same toggle).
func (s *Store) SetActive(ctx context.Context, ruleID string, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE alert_rules SET is_active = $2 WHERE rule_id = $1`, ruleID, active)
	if err != nil {
		return errs.Transient(fmt.Errorf("set rule active=%v: %w", active, err))
	}
	if tag.RowsAffected() == 0 {
		return errs.Validation("rule_id", fmt.Errorf("rule %s not found", ruleID))
	}
	return nil
}

// Baseline returns the merchant's baseline, or a default baseline
// (30-minute SLA, zero average approval rate) if none is configured.
func (s *Store) Baseline(ctx context.Context, merchantID string) (models.MerchantBaseline, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT merchant_id, sla_minutes, avg_approval_rate
		FROM merchant_baselines WHERE merchant_id = $1
	`, merchantID)

	var b models.MerchantBaseline
	err := row.Scan(&b.MerchantID, &b.SLAMinutes, &b.AvgApprovalRate)
	if err == pgx.ErrNoRows {
		return models.MerchantBaseline{MerchantID: merchantID, SLAMinutes: 30}, nil
	}
	if err != nil {
		return models.MerchantBaseline{}, errs.Transient(fmt.Errorf("query baseline: %w", err))
	}
	return b, nil
}
