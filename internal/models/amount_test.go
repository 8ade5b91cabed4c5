package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1.234,56", "1234.56"},
		{"-3,50", "-3.5"},
		{"12,50", "12.5"},
		{"1,234.50", "1234.5"},
		{"EUR 1,234.50", "1234.5"},
		{"€ 99", "99"},
		{"1.250", "1250"},
		{"-0.75", "-0.75"},
		{"(15,00)", "-15"},
		{"1.234.567,89", "1234567.89"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if err != nil {
			t.Errorf("ParseAmount(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "EUR", "abc"} {
		if _, err := ParseAmount(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
