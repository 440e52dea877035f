// Package currency converts transaction amounts to USD at ingest time using
// a static conversion table, per spec.md §3 ("converted at ingest via a
// static table; unknown currency ⇒ reject").
//
// Open question (spec.md §9): the refresh policy for this table is left to
// the operator. This package provides the mechanism (reloadable from a JSON
// file) without committing to a policy — LoadFile is called once at startup
// by the ingestor when CURRENCY_TABLE_PATH is set; nothing in the core calls
// it on a timer.
package currency

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Table maps an uppercase ISO-4217 currency code to its USD conversion
// rate (1 unit of the code = rate USD).
type Table struct {
	rates map[string]decimal.Decimal
}

// defaultRates is the built-in static table, used when no CURRENCY_TABLE_PATH
// is configured. Values are illustrative fixed rates, matching the scope of
// a static table the spec calls for (not a live feed).
var defaultRates = map[string]string{
	"USD": "1",
	"MXN": "0.059",
	"BRL": "0.20",
	"COP": "0.00025",
	"ARS": "0.0011",
	"CLP": "0.0011",
	"PEN": "0.27",
	"EUR": "1.09",
	"GBP": "1.27",
}

// Default builds the built-in static table.
func Default() *Table {
	return mustBuild(defaultRates)
}

// LoadFile builds a Table from a JSON file of {"CODE": "rate", ...} entries,
// falling back to the built-in table for any code the file omits.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read currency table: %w", err)
	}
	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse currency table: %w", err)
	}
	merged := make(map[string]string, len(defaultRates)+len(entries))
	for k, v := range defaultRates {
		merged[k] = v
	}
	for k, v := range entries {
		merged[strings.ToUpper(k)] = v
	}
	return mustBuild(merged), nil
}

func mustBuild(raw map[string]string) *Table {
	rates := make(map[string]decimal.Decimal, len(raw))
	for code, rateStr := range raw {
		d, err := decimal.NewFromString(rateStr)
		if err != nil {
			continue // skip malformed entries rather than fail startup
		}
		rates[strings.ToUpper(code)] = d
	}
	return &Table{rates: rates}
}

// ToUSD converts amount (in the given currency) to USD. Returns an error if
// the currency is not in the table — per spec.md, an unknown currency must
// cause the event to be rejected, not silently passed through at rate 1.
func (t *Table) ToUSD(amount decimal.Decimal, currencyCode string) (decimal.Decimal, error) {
	rate, ok := t.rates[strings.ToUpper(strings.TrimSpace(currencyCode))]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown currency %q", currencyCode)
	}
	return amount.Mul(rate), nil
}
