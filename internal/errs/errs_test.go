package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestAsUnwrapsWrappedError(t *testing.T) {
	base := Validation("amount_usd", errors.New("must be non-negative"))
	wrapped := fmt.Errorf("ingest failed: %w", base)

	e, ok := As(wrapped)
	if !ok {
		t.Fatal("expected As to find the wrapped *Error")
	}
	if e.Kind != KindValidation || e.Field != "amount_usd" {
		t.Fatalf("got kind=%v field=%q", e.Kind, e.Field)
	}
}

func TestAsFalseForPlainError(t *testing.T) {
	if _, ok := As(errors.New("boom")); ok {
		t.Fatal("expected As to return false for a non-*Error")
	}
}

func TestKindOfDefaultsToTransient(t *testing.T) {
	if KindOf(errors.New("boom")) != KindTransient {
		t.Fatal("unclassified errors should default to KindTransient")
	}
}

func TestRetriable(t *testing.T) {
	if !Retriable(Transient(errors.New("timeout"))) {
		t.Fatal("transient errors should be retriable")
	}
	if Retriable(Validation("field", errors.New("bad"))) {
		t.Fatal("validation errors should not be retriable")
	}
	if Retriable(Permanent(errors.New("boom"))) {
		t.Fatal("permanent errors should not be retriable")
	}
	if Retriable(Invariant(errors.New("boom"))) {
		t.Fatal("invariant errors should not be retriable")
	}
}

func TestErrorStringIncludesField(t *testing.T) {
	err := Validation("country", errors.New("required"))
	got := err.Error()
	want := "validation: country: required"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestErrorStringWithoutField(t *testing.T) {
	err := Transient(errors.New("connection refused"))
	got := err.Error()
	want := "transient_dependency: connection refused"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
