package main

import (
	"bytes"
	"strings"
	"testing"
)

const fixture = "../../testdata/order.json"

func TestRun_QuoteWithShippedRules(t *testing.T) {
	tests := []struct {
		version string
		want    []string
	}{
		{"v1", []string{"Subtotal:    106.00", "service:     10.60", "vat:         16.32", "Total:       132.92", "APROVADO"}},
		{"v2", []string{"loyalty:     -5.30", "vat:         14.10", "Total:       115.00", "Versão Rule: v2"}},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(&out, fixture, "../../rules", tt.version, "gate", false, false); err != nil {
				t.Fatalf("run: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output missing %q:\n%s", w, out.String())
				}
			}
		})
	}
}

func TestRun_PriceOnly(t *testing.T) {
	var out bytes.Buffer
	if err := run(&out, fixture, "does-not-exist", "v1", "scale", true, false); err != nil {
		t.Fatalf("run: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "Total:       106.00") {
		t.Errorf("unexpected total:\n%s", s)
	}
	if !strings.Contains(s, "Soup of the day") || !strings.Contains(s, "indisponível") {
		t.Errorf("expected unavailable item in breakdown:\n%s", s)
	}
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	if err := run(&out, "missing.json", "../../rules", "v1", "gate", false, false); err == nil {
		t.Error("expected error for missing order file")
	}
	if err := run(&out, fixture, "../../rules", "v1", "double", false, false); err == nil {
		t.Error("expected error for unknown mode")
	}
	if err := run(&out, fixture, "../../rules", "v9", "gate", false, false); err == nil {
		t.Error("expected error for unknown rule pack")
	}
}
