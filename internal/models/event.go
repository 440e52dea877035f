// Package models defines the core data types shared across the pipeline:
// events, rules, incidents, and the dimension keys that tie them together.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the closed set of transaction outcomes, per spec.md §3.
type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusSucceeded Status = "SUCCEEDED"
	StatusDeclined Status = "DECLINED"
	StatusError    Status = "ERROR"
	StatusRejected Status = "REJECTED"
)

// ValidStatuses enumerates the closed set for validation.
var ValidStatuses = map[Status]bool{
	StatusCreated:   true,
	StatusSucceeded: true,
	StatusDeclined:  true,
	StatusError:     true,
	StatusRejected:  true,
}

// Event is an immutable transaction record. RawPayload is a JSON document
// stored alongside the columns for later ad-hoc granular queries; when it is
// nil, the Event Log builds it from this Event's own fields, with the amount
// as the converted USD value. The request body as received (including the
// original currency and amount) is not kept. The core never mutates
// RawPayload and only inspects the fields it declares here.
type Event struct {
	EventID             string
	ReceivedAt          time.Time
	MerchantID          string
	ProviderID          string
	Country             string // ISO-2
	Status              Status
	SubStatus           *string
	AmountUSD           decimal.Decimal
	IssuerName          *string
	CardBrand           string
	BIN                 string
	ResponseCode        *string
	MerchantAdviceCode  *string
	LatencyMS           int64
	RawPayload          []byte
}

// IngestRequest is the wire shape of POST /ingest, matching spec.md §3's
// Event fields plus the original currency/amount pair that gets converted
// to AmountUSD at ingest time.
type IngestRequest struct {
	EventID            string          `json:"event_id,omitempty"`
	MerchantID         string          `json:"merchant_id"`
	ProviderID         string          `json:"provider_id"`
	Country            string          `json:"country"`
	Status             string          `json:"status"`
	SubStatus          *string         `json:"sub_status,omitempty"`
	Amount             AmountRequest   `json:"amount"`
	IssuerName         *string         `json:"issuer_name,omitempty"`
	CardBrand          string          `json:"card_brand,omitempty"`
	BIN                string          `json:"bin,omitempty"`
	ResponseCode       *string         `json:"response_code,omitempty"`
	MerchantAdviceCode *string         `json:"merchant_advice_code,omitempty"`
	LatencyMS          int64           `json:"latency_ms"`
}

// AmountRequest is the nested amount+currency pair in the ingest payload.
type AmountRequest struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// IngestResponse is returned on successful ingest.
type IngestResponse struct {
	EventID    string    `json:"event_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}
