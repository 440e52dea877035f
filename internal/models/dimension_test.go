package models

import "testing"

func TestBuildDimensionKeyWildcards(t *testing.T) {
	got := BuildDimensionKey("", "MX", "", "")
	want := DimensionKey("_/MX/_/_")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGranularitiesCount(t *testing.T) {
	keys := Granularities("m1", "MX", "stripe", "visa-issuer")
	if len(keys) != 5 {
		t.Fatalf("expected 5 granularities, got %d", len(keys))
	}
	seen := make(map[DimensionKey]bool)
	for _, k := range keys {
		if seen[k] {
			t.Fatalf("duplicate granularity key %q", k)
		}
		seen[k] = true
	}
}

func TestResponseCodeDimensionKeyOmitsIssuer(t *testing.T) {
	got := ResponseCodeDimensionKey("m1", "MX", "stripe")
	want := BuildDimensionKey("m1", "MX", "stripe", "")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
