package main

import (
	"bytes"
	"strings"
	"testing"
)

func runCtl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PRICING_RULES_PATH", "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPriceCommand(t *testing.T) {
	out, err := runCtl(t, "price", "--size", "large", "--workload", "heavy", "--adjust", "Stairs=25.50")
	if err != nil {
		t.Fatalf("price: %v\n%s", err, out)
	}
	// 150 * 2.0 * 1.6 + 25.50
	if !strings.Contains(out, "505.50") {
		t.Fatalf("expected final cost 505.50, got:\n%s", out)
	}
}

func TestPriceCommandAppliesOverride(t *testing.T) {
	out, err := runCtl(t, "price", "--size", "small", "--workload", "light", "--override-workload", "extreme")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !strings.Contains(out, "150.00") || !strings.Contains(out, "300.00") {
		t.Fatalf("expected automated 150.00 and final 300.00, got:\n%s", out)
	}
	if !strings.Contains(out, "extreme (human)") {
		t.Fatalf("expected human workload source, got:\n%s", out)
	}
}

func TestPriceCommandRejectsUnknownClass(t *testing.T) {
	if _, err := runCtl(t, "price", "--size", "huge", "--workload", "heavy"); err == nil {
		t.Fatalf("expected unknown size to fail")
	}
}

func TestPriceCommandRejectsMalformedAdjustment(t *testing.T) {
	if _, err := runCtl(t, "price", "--size", "small", "--workload", "light", "--adjust", "Stairs"); err == nil {
		t.Fatalf("expected malformed adjustment to fail")
	}
}

func TestTableCommand(t *testing.T) {
	out, err := runCtl(t, "table")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	for _, want := range []string{"base_rate", "150.00", "extra_large", "extreme"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
