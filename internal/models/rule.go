package models

import "time"

// MetricType is the tagged variant over the four metric kinds the Detector
// can evaluate, per spec.md §3/§9 ("no dynamic dispatch beyond this
// discriminant").
type MetricType string

const (
	MetricApprovalRate MetricType = "APPROVAL_RATE"
	MetricErrorRate    MetricType = "ERROR_RATE"
	MetricDeclineRate  MetricType = "DECLINE_RATE"
	MetricTotalVolume  MetricType = "TOTAL_VOLUME"
)

// Operator is the comparison applied to threshold.
type Operator string

const (
	OpLessThan      Operator = "<"
	OpGreaterThan   Operator = ">"
	OpLessOrEqual   Operator = "<="
	OpGreaterOrEqual Operator = ">="
)

// Evaluate applies the operator to (observed, threshold).
func (op Operator) Evaluate(observed, threshold float64) bool {
	switch op {
	case OpLessThan:
		return observed < threshold
	case OpGreaterThan:
		return observed > threshold
	case OpLessOrEqual:
		return observed <= threshold
	case OpGreaterOrEqual:
		return observed >= threshold
	default:
		return false
	}
}

// Severity is the alert severity level.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rule is a user-defined alert condition, per spec.md §3. A nil MerchantID
// means the rule is global. Filters (Country/ProviderID/IssuerName) are
// optional; an empty string means "no filter on this dimension".
type Rule struct {
	RuleID          string
	MerchantID      *string
	Country         string
	ProviderID      string
	IssuerName      string
	MetricType      MetricType
	Operator        Operator
	Threshold       float64
	MinTransactions int64
	StartHour       *int // UTC hour, inclusive; nil = no time bound
	EndHour         *int // UTC hour, exclusive
	Severity        Severity
	Active          bool
	CreatedAt       time.Time
}

// InTimeWindow reports whether hourUTC (0-23) falls within the rule's
// configured window, or true if the rule is not time-bounded.
func (r Rule) InTimeWindow(hourUTC int) bool {
	if r.StartHour == nil || r.EndHour == nil {
		return true
	}
	start, end := *r.StartHour, *r.EndHour
	if start <= end {
		return hourUTC >= start && hourUTC < end
	}
	// wrap-around window, e.g. [22, 6)
	return hourUTC >= start || hourUTC < end
}

// DimensionKey returns the dimension-key this rule's filters resolve to,
// scoped to the given merchant. The Detector passes MerchantScope(), so a
// global rule's key carries the wildcard in the merchant position.
func (r Rule) DimensionKey(merchantID string) DimensionKey {
	return BuildDimensionKey(merchantID, r.Country, r.ProviderID, r.IssuerName)
}

// MerchantScope returns the merchant ID this rule applies to, or "" for a
// global rule (matching all merchants).
func (r Rule) MerchantScope() string {
	if r.MerchantID == nil {
		return ""
	}
	return *r.MerchantID
}

// RuleCreateRequest is the POST /rules payload.
type RuleCreateRequest struct {
	MerchantID      *string  `json:"merchant_id,omitempty"`
	Country         string   `json:"country,omitempty"`
	ProviderID      string   `json:"provider,omitempty"`
	IssuerName      string   `json:"issuer,omitempty"`
	MetricType      string   `json:"metric_type"`
	Operator        string   `json:"operator"`
	Threshold       float64  `json:"threshold"`
	MinTransactions int64    `json:"min_transactions"`
	StartHour       *int     `json:"start_hour,omitempty"`
	EndHour         *int     `json:"end_hour,omitempty"`
	Severity        string   `json:"severity"`
}

// MerchantBaseline is consulted for SLA countdown and decline-rate
// deviations, per spec.md §3.
type MerchantBaseline struct {
	MerchantID       string
	SLAMinutes       int
	AvgApprovalRate  float64
}
