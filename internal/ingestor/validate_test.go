package ingestor

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yuno/sentinel/internal/currency"
	"github.com/yuno/sentinel/internal/errs"
	"github.com/yuno/sentinel/internal/models"
)

// validate runs entirely in-memory (currency conversion, field checks) so it
// can be exercised without a live Postgres/Redis connection.
func newTestIngestor() *Ingestor {
	return &Ingestor{fx: currency.Default()}
}

func validRequest() models.IngestRequest {
	return models.IngestRequest{
		MerchantID: "merchant-1",
		ProviderID: "stripe",
		Country:    "MX",
		Status:     string(models.StatusSucceeded),
		Amount:     models.AmountRequest{Value: decimal.NewFromInt(100), Currency: "MXN"},
		LatencyMS:  120,
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	in := newTestIngestor()
	ev, err := in.validate(validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.EventID == "" {
		t.Fatal("expected a generated event_id")
	}
	if ev.Status != models.StatusSucceeded {
		t.Fatalf("got status %q", ev.Status)
	}
}

func TestValidateRejectsMissingMerchantID(t *testing.T) {
	req := validRequest()
	req.MerchantID = ""
	assertFieldRejected(t, req, "merchant_id")
}

func TestValidateRejectsMissingProviderID(t *testing.T) {
	req := validRequest()
	req.ProviderID = ""
	assertFieldRejected(t, req, "provider_id")
}

func TestValidateRejectsMalformedCountry(t *testing.T) {
	req := validRequest()
	req.Country = "Mexico"
	assertFieldRejected(t, req, "country")
}

func TestValidateRejectsUnknownStatus(t *testing.T) {
	req := validRequest()
	req.Status = "PENDING"
	assertFieldRejected(t, req, "status")
}

func TestValidateRejectsNegativeAmount(t *testing.T) {
	req := validRequest()
	req.Amount.Value = decimal.NewFromInt(-1)
	assertFieldRejected(t, req, "amount.value")
}

func TestValidateRejectsUnknownCurrency(t *testing.T) {
	req := validRequest()
	req.Amount.Currency = "XXX"
	assertFieldRejected(t, req, "amount.currency")
}

func TestValidateRejectsNegativeLatency(t *testing.T) {
	req := validRequest()
	req.LatencyMS = -5
	assertFieldRejected(t, req, "latency_ms")
}

func TestValidatePreservesCallerSuppliedEventID(t *testing.T) {
	req := validRequest()
	req.EventID = "caller-assigned-id"
	in := newTestIngestor()
	ev, err := in.validate(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.EventID != "caller-assigned-id" {
		t.Fatalf("got %q, want caller-assigned-id", ev.EventID)
	}
}

func assertFieldRejected(t *testing.T, req models.IngestRequest, field string) {
	t.Helper()
	in := newTestIngestor()
	_, err := in.validate(req)
	if err == nil {
		t.Fatalf("expected validation error for field %q", field)
	}
	e, ok := errs.As(err)
	if !ok || e.Kind != errs.KindValidation {
		t.Fatalf("expected a KindValidation error, got %v", err)
	}
	if e.Field != field {
		t.Fatalf("expected field %q, got %q", field, e.Field)
	}
}
