package currency

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultTableConvertsKnownCurrency(t *testing.T) {
	tbl := Default()
	got, err := tbl.ToUSD(decimal.NewFromInt(100), "mxn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := decimal.NewFromInt(100).Mul(decimal.RequireFromString("0.059"))
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestDefaultTableUSDIsIdentity(t *testing.T) {
	tbl := Default()
	got, err := tbl.ToUSD(decimal.NewFromInt(42), "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("got %s, want 42", got)
	}
}

func TestUnknownCurrencyRejected(t *testing.T) {
	tbl := Default()
	if _, err := tbl.ToUSD(decimal.NewFromInt(10), "XXX"); err == nil {
		t.Fatal("expected an error for an unknown currency code")
	}
}

func TestLoadFileOverridesAndSupplements(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rates.json")

	entries := map[string]string{
		"USD": "1",
		"JPY": "0.0067",
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tbl, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if _, err := tbl.ToUSD(decimal.NewFromInt(1), "JPY"); err != nil {
		t.Fatalf("expected JPY to be loaded from file: %v", err)
	}
	if _, err := tbl.ToUSD(decimal.NewFromInt(1), "MXN"); err != nil {
		t.Fatalf("expected MXN to still be present from the built-in defaults: %v", err)
	}
}
