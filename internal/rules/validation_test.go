package rules

import (
	"context"
	"testing"

	"github.com/yuno/sentinel/internal/errs"
	"github.com/yuno/sentinel/internal/models"
)

// Create validates metric_type/operator/severity before ever touching the
// pool, so a Store with a nil pool is enough to exercise the rejection
// paths without a live Postgres instance.
func TestCreateRejectsUnsupportedMetricType(t *testing.T) {
	store := New(nil)
	_, err := store.Create(context.Background(), models.RuleCreateRequest{
		MetricType: "NOT_A_METRIC",
		Operator:   ">",
		Severity:   "WARNING",
	})
	assertValidationField(t, err, "metric_type")
}

func TestCreateRejectsUnsupportedOperator(t *testing.T) {
	store := New(nil)
	_, err := store.Create(context.Background(), models.RuleCreateRequest{
		MetricType: string(models.MetricErrorRate),
		Operator:   "~=",
		Severity:   "WARNING",
	})
	assertValidationField(t, err, "operator")
}

func TestCreateRejectsUnsupportedSeverity(t *testing.T) {
	store := New(nil)
	_, err := store.Create(context.Background(), models.RuleCreateRequest{
		MetricType: string(models.MetricErrorRate),
		Operator:   ">",
		Severity:   "PANIC",
	})
	assertValidationField(t, err, "severity")
}

func assertValidationField(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	e, ok := errs.As(err)
	if !ok || e.Kind != errs.KindValidation {
		t.Fatalf("expected a KindValidation error, got %v", err)
	}
	if e.Field != field {
		t.Fatalf("expected field %q, got %q", field, e.Field)
	}
}
