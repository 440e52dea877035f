package models

import "testing"

func TestOperatorEvaluate(t *testing.T) {
	cases := []struct {
		op        Operator
		observed  float64
		threshold float64
		want      bool
	}{
		{OpGreaterThan, 0.5, 0.3, true},
		{OpGreaterThan, 0.2, 0.3, false},
		{OpLessThan, 0.2, 0.3, true},
		{OpGreaterOrEqual, 0.3, 0.3, true},
		{OpLessOrEqual, 0.3, 0.3, true},
		{Operator("?"), 1, 1, false},
	}
	for _, c := range cases {
		if got := c.op.Evaluate(c.observed, c.threshold); got != c.want {
			t.Errorf("%s.Evaluate(%v, %v) = %v, want %v", c.op, c.observed, c.threshold, got, c.want)
		}
	}
}

func TestRuleInTimeWindow(t *testing.T) {
	hour := func(h int) *int { return &h }

	noBound := Rule{}
	if !noBound.InTimeWindow(3) {
		t.Fatal("rule with no bound should match every hour")
	}

	normal := Rule{StartHour: hour(9), EndHour: hour(17)}
	if !normal.InTimeWindow(9) || !normal.InTimeWindow(16) {
		t.Fatal("expected 9 and 16 inside [9, 17)")
	}
	if normal.InTimeWindow(8) || normal.InTimeWindow(17) {
		t.Fatal("expected 8 and 17 outside [9, 17)")
	}

	wrapped := Rule{StartHour: hour(22), EndHour: hour(6)}
	if !wrapped.InTimeWindow(23) || !wrapped.InTimeWindow(0) {
		t.Fatal("expected 23 and 0 inside wrap-around [22, 6)")
	}
	if wrapped.InTimeWindow(12) {
		t.Fatal("expected 12 outside wrap-around [22, 6)")
	}
}

func TestRuleMerchantScope(t *testing.T) {
	global := Rule{}
	if global.MerchantScope() != "" {
		t.Fatal("global rule should scope to empty merchant")
	}

	merchant := "m-1"
	scoped := Rule{MerchantID: &merchant}
	if scoped.MerchantScope() != "m-1" {
		t.Fatalf("got %q, want m-1", scoped.MerchantScope())
	}
}

func TestRuleDimensionKey(t *testing.T) {
	r := Rule{Country: "MX", ProviderID: "stripe"}
	got := r.DimensionKey("merchant-1")
	want := BuildDimensionKey("merchant-1", "MX", "stripe", "")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
