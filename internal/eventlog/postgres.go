// Package eventlog is the durable, append-only record of accepted
// transaction events (spec.md §3/§4.1). Events are never mutated once
// written; the Detector queries it for granular, window-scoped analysis
// that the Metric Store's coarse counters cannot answer (revenue-at-risk,
// issuer breakdowns, response-code breakdowns, per-minute trend windows).
package eventlog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yuno/sentinel/internal/errs"
	"github.com/yuno/sentinel/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Store is the Postgres-backed Event Log.
type Store struct {
	pool *pgxpool.Pool

	mu   sync.Mutex
	last time.Time // last assigned received_at, for monotonicity within this instance
}

// New wraps an existing connection pool. The caller owns the pool's
// lifecycle (Close).
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect builds a new connection pool and verifies connectivity.
func Connect(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// nextReceivedAt assigns a server timestamp that is monotonically
// non-decreasing relative to every previous call on this Store, per
// spec.md §3's invariant ("received_at is monotonically non-decreasing
// within a single ingestor instance").
func (s *Store) nextReceivedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	return now
}

// rawPayload is the JSON shape Append stores when the caller leaves
// RawPayload nil. It is rebuilt from the normalized Event, so the amount is
// the converted USD value and event_id is not included.
type rawPayload struct {
	MerchantID         string          `json:"merchant_id"`
	ProviderID         string          `json:"provider_id"`
	Country            string          `json:"country"`
	Status             string          `json:"status"`
	SubStatus          *string         `json:"sub_status,omitempty"`
	Amount             models.AmountRequest `json:"amount"`
	IssuerName         *string         `json:"issuer_name,omitempty"`
	CardBrand          string          `json:"card_brand,omitempty"`
	BIN                string          `json:"bin,omitempty"`
	ResponseCode       *string         `json:"response_code,omitempty"`
	MerchantAdviceCode *string         `json:"merchant_advice_code,omitempty"`
	LatencyMS          int64           `json:"latency_ms"`
}

// Append persists ev, assigning ReceivedAt (and RawPayload, if nil), and
// returns the stored record. The caller has already validated the request,
// set EventID, and converted the amount to USD.
func (s *Store) Append(ctx context.Context, ev models.Event) (models.Event, error) {
	ev.ReceivedAt = s.nextReceivedAt()

	if ev.RawPayload == nil {
		payload := rawPayload{
			MerchantID:         ev.MerchantID,
			ProviderID:         ev.ProviderID,
			Country:            ev.Country,
			Status:             string(ev.Status),
			SubStatus:          ev.SubStatus,
			Amount:             models.AmountRequest{Value: ev.AmountUSD, Currency: "USD"},
			IssuerName:         ev.IssuerName,
			CardBrand:          ev.CardBrand,
			BIN:                ev.BIN,
			ResponseCode:       ev.ResponseCode,
			MerchantAdviceCode: ev.MerchantAdviceCode,
			LatencyMS:          ev.LatencyMS,
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return models.Event{}, errs.Invariant(fmt.Errorf("marshal raw payload: %w", err))
		}
		ev.RawPayload = raw
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO events_log (
			event_id, received_at, merchant_id, provider_id, country, status,
			sub_status, amount_usd, issuer_name, card_brand, bin,
			response_code, merchant_advice_code, latency_ms, raw_payload
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		ev.EventID, ev.ReceivedAt, ev.MerchantID, ev.ProviderID, ev.Country, string(ev.Status),
		ev.SubStatus, ev.AmountUSD, ev.IssuerName, ev.CardBrand, ev.BIN,
		ev.ResponseCode, ev.MerchantAdviceCode, ev.LatencyMS, ev.RawPayload,
	)
	if err != nil {
		return models.Event{}, errs.Transient(fmt.Errorf("insert event: %w", err))
	}
	return ev, nil
}

// GetByID returns the event with the given ID, including the raw_payload
// bytes as stored by Append.
func (s *Store) GetByID(ctx context.Context, eventID string) (models.Event, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT event_id, received_at, merchant_id, provider_id, country, status,
		       sub_status, amount_usd, issuer_name, card_brand, bin,
		       response_code, merchant_advice_code, latency_ms, raw_payload
		FROM events_log WHERE event_id = $1
	`, eventID)

	var ev models.Event
	var status string
	err := row.Scan(
		&ev.EventID, &ev.ReceivedAt, &ev.MerchantID, &ev.ProviderID, &ev.Country, &status,
		&ev.SubStatus, &ev.AmountUSD, &ev.IssuerName, &ev.CardBrand, &ev.BIN,
		&ev.ResponseCode, &ev.MerchantAdviceCode, &ev.LatencyMS, &ev.RawPayload,
	)
	if err == pgx.ErrNoRows {
		return models.Event{}, false, nil
	}
	if err != nil {
		return models.Event{}, false, errs.Transient(fmt.Errorf("query event: %w", err))
	}
	ev.Status = models.Status(status)
	return ev, true, nil
}

// SumAdverseUSD sums amount_usd for events matching the dimension scope and
// any of statuses, received within [since, now). Used to compute
// revenue_at_risk_usd directly from the Event Log, per spec.md §4.4.1.
func (s *Store) SumAdverseUSD(ctx context.Context, merchantID, country, providerID string, statuses []models.Status, since time.Time) (decimal.Decimal, error) {
	statusStrs := make([]string, len(statuses))
	for i, st := range statuses {
		statusStrs[i] = string(st)
	}

	var sum decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_usd), 0)
		FROM events_log
		WHERE ($1 = '' OR merchant_id = $1) AND ($2 = '' OR country = $2) AND ($3 = '' OR provider_id = $3)
		  AND status = ANY($4) AND received_at >= $5
	`, merchantID, country, providerID, statusStrs, since).Scan(&sum)
	if err != nil {
		return decimal.Zero, errs.Transient(fmt.Errorf("sum adverse usd: %w", err))
	}
	return sum, nil
}

// ResponseCodeBreakdown returns ERROR-event counts grouped by response_code
// within [since, now), per spec.md §4.1's response-code side counters (here
// computed directly from the log for incident enrichment, which needs the
// exact breakdown rather than the Metric Store's coarser side counters).
func (s *Store) ResponseCodeBreakdown(ctx context.Context, merchantID, country, providerID string, since time.Time) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(response_code, 'UNKNOWN'), COUNT(*)
		FROM events_log
		WHERE ($1 = '' OR merchant_id = $1) AND ($2 = '' OR country = $2) AND ($3 = '' OR provider_id = $3)
		  AND status = 'ERROR' AND received_at >= $4
		GROUP BY response_code
	`, merchantID, country, providerID, since)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("response code breakdown: %w", err))
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var code string
		var count int64
		if err := rows.Scan(&code, &count); err != nil {
			return nil, errs.Transient(fmt.Errorf("scan response code row: %w", err))
		}
		out[code] = count
	}
	return out, rows.Err()
}

// IssuerStat is one row of the issuer-level error breakdown.
type IssuerStat struct {
	IssuerName      string
	ErrorCount      int64
	RevenueAtRisk   decimal.Decimal
}

// IssuerErrorBreakdown returns issuers with >= 3 ERROR events in the window,
// ordered by error count descending, limited to 5 — matching
// original_source/backend/database.py#get_issuer_breakdown's HAVING/LIMIT.
func (s *Store) IssuerErrorBreakdown(ctx context.Context, merchantID, country, providerID string, since time.Time) ([]IssuerStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT issuer_name, COUNT(*), COALESCE(SUM(amount_usd), 0)
		FROM events_log
		WHERE ($1 = '' OR merchant_id = $1) AND ($2 = '' OR country = $2) AND ($3 = '' OR provider_id = $3)
		  AND status = 'ERROR' AND received_at >= $4 AND issuer_name IS NOT NULL
		GROUP BY issuer_name
		HAVING COUNT(*) >= 3
		ORDER BY COUNT(*) DESC
		LIMIT 5
	`, merchantID, country, providerID, since)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("issuer breakdown: %w", err))
	}
	defer rows.Close()

	var out []IssuerStat
	for rows.Next() {
		var stat IssuerStat
		if err := rows.Scan(&stat.IssuerName, &stat.ErrorCount, &stat.RevenueAtRisk); err != nil {
			return nil, errs.Transient(fmt.Errorf("scan issuer row: %w", err))
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

// MinuteCount is one minute-truncated bucket of (adverse, total) counts.
type MinuteCount struct {
	Minute  time.Time
	Adverse int64
	Total   int64
}

// MinuteCounts returns per-minute (adverse, total) counts over the last
// windowMinutes, most recent first, used for trend confirmation (spec.md
// §4.4.1: "≥ 60% of sub-windows containing any traffic"). adverseStatuses
// selects which statuses count toward "adverse" for this metric type. total
// is the rate denominator (SUCCEEDED, DECLINED and ERROR), the same one the
// Detector's rateDenominator uses; REJECTED and CREATED are not counted.
func (s *Store) MinuteCounts(ctx context.Context, merchantID, country, providerID string, adverseStatuses []models.Status, windowMinutes int) ([]MinuteCount, error) {
	statusStrs := make([]string, len(adverseStatuses))
	for i, st := range adverseStatuses {
		statusStrs[i] = string(st)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT
			date_trunc('minute', received_at) AS minute,
			COUNT(*) FILTER (WHERE status = ANY($4)) AS adverse,
			COUNT(*) FILTER (WHERE status IN ('SUCCEEDED','DECLINED','ERROR')) AS total
		FROM events_log
		WHERE ($1 = '' OR merchant_id = $1) AND ($2 = '' OR country = $2) AND ($3 = '' OR provider_id = $3)
		  AND received_at >= NOW() - make_interval(mins => $5)
		GROUP BY minute
		ORDER BY minute DESC
	`, merchantID, country, providerID, statusStrs, windowMinutes)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("minute counts: %w", err))
	}
	defer rows.Close()

	var out []MinuteCount
	for rows.Next() {
		var mc MinuteCount
		if err := rows.Scan(&mc.Minute, &mc.Adverse, &mc.Total); err != nil {
			return nil, errs.Transient(fmt.Errorf("scan minute row: %w", err))
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// RecentStatuses returns up to limit statuses in the dimension, most recent
// first, for the recovery check (spec.md §4.4.2: "N consecutive events in
// reverse chronological order are non-adverse").
func (s *Store) RecentStatuses(ctx context.Context, merchantID, country, providerID string, limit int) ([]models.Status, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status FROM events_log
		WHERE ($1 = '' OR merchant_id = $1) AND ($2 = '' OR country = $2) AND ($3 = '' OR provider_id = $3)
		ORDER BY received_at DESC
		LIMIT $4
	`, merchantID, country, providerID, limit)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("recent statuses: %w", err))
	}
	defer rows.Close()

	var out []models.Status
	for rows.Next() {
		var st string
		if err := rows.Scan(&st); err != nil {
			return nil, errs.Transient(fmt.Errorf("scan status row: %w", err))
		}
		out = append(out, models.Status(st))
	}
	return out, rows.Err()
}

// MajorityAdviceCode reports the most frequent merchant_advice_code among
// ERROR events in the window, and whether it constitutes a strict majority
// (> 50%) of those events — resolving the Open Question in spec.md §9 in
// favor of "only when above a frequency threshold".
func (s *Store) MajorityAdviceCode(ctx context.Context, merchantID, country, providerID string, since time.Time) (code string, isMajority bool, err error) {
	rows, qerr := s.pool.Query(ctx, `
		SELECT merchant_advice_code, COUNT(*)
		FROM events_log
		WHERE ($1 = '' OR merchant_id = $1) AND ($2 = '' OR country = $2) AND ($3 = '' OR provider_id = $3)
		  AND status = 'ERROR' AND received_at >= $4 AND merchant_advice_code IS NOT NULL
		GROUP BY merchant_advice_code
	`, merchantID, country, providerID, since)
	if qerr != nil {
		return "", false, errs.Transient(fmt.Errorf("advice code query: %w", qerr))
	}
	defer rows.Close()

	var total int64
	counts := map[string]int64{}
	for rows.Next() {
		var c string
		var n int64
		if serr := rows.Scan(&c, &n); serr != nil {
			return "", false, errs.Transient(fmt.Errorf("scan advice code row: %w", serr))
		}
		counts[c] = n
		total += n
	}
	if rerr := rows.Err(); rerr != nil {
		return "", false, errs.Transient(rerr)
	}
	if total == 0 {
		return "", false, nil
	}

	var best string
	var bestCount int64
	for c, n := range counts {
		if n > bestCount {
			best, bestCount = c, n
		}
	}
	return best, float64(bestCount) > float64(total)/2, nil
}

// MinuteSnapshot is one row of GET /metrics/recent's response, per spec.md
// §6.
type MinuteSnapshot struct {
	Timestamp    time.Time
	TotalCount   int64
	ApprovalRate float64
	ErrorRate    float64
}

// RecentMinuteSnapshots returns the last `minutes` one-minute snapshots
// across every merchant, most recent first, backing GET /metrics/recent.
// Rate denominators exclude REJECTED and CREATED events, matching the
// Detector's own rateDenominator (spec.md §9's Open Question #2).
func (s *Store) RecentMinuteSnapshots(ctx context.Context, minutes int) ([]MinuteSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			date_trunc('minute', received_at) AS minute,
			COUNT(*) FILTER (WHERE status IN ('SUCCEEDED','DECLINED','ERROR','REJECTED','CREATED')) AS total_count,
			COUNT(*) FILTER (WHERE status = 'SUCCEEDED') AS succeeded,
			COUNT(*) FILTER (WHERE status = 'ERROR') AS errored,
			COUNT(*) FILTER (WHERE status IN ('SUCCEEDED','DECLINED','ERROR')) AS rate_denom
		FROM events_log
		WHERE received_at >= NOW() - make_interval(mins => $1)
		GROUP BY minute
		ORDER BY minute DESC
	`, minutes)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("recent minute snapshots: %w", err))
	}
	defer rows.Close()

	var out []MinuteSnapshot
	for rows.Next() {
		var snap MinuteSnapshot
		var succeeded, errored, rateDenom int64
		if err := rows.Scan(&snap.Timestamp, &snap.TotalCount, &succeeded, &errored, &rateDenom); err != nil {
			return nil, errs.Transient(fmt.Errorf("scan minute snapshot row: %w", err))
		}
		if rateDenom > 0 {
			snap.ApprovalRate = float64(succeeded) / float64(rateDenom)
			snap.ErrorRate = float64(errored) / float64(rateDenom)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Ping verifies connectivity for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
