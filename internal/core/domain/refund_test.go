package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/samirrijal/busticket/internal/core/domain"
)

func TestMatchRefundTier(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{25, domain.ConfigRefund24h},
		{24, domain.ConfigRefund24h},
		{23.99, domain.ConfigRefund12h},
		{12, domain.ConfigRefund12h},
		{11.5, domain.ConfigRefund2h},
		{2, domain.ConfigRefund2h},
	}
	for _, tt := range tests {
		tier, err := domain.MatchRefundTier(domain.RefundTiers, tt.hours)
		if err != nil {
			t.Fatalf("%.2fh: unexpected error: %v", tt.hours, err)
		}
		if tier.ConfigKey != tt.want {
			t.Errorf("%.2fh: expected %s, got %s", tt.hours, tt.want, tier.ConfigKey)
		}
	}
}

func TestMatchRefundTier_TooLate(t *testing.T) {
	for _, hours := range []float64{1.99, 1, 0, -3} {
		_, err := domain.MatchRefundTier(domain.RefundTiers, hours)
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("%.2fh: expected ErrInvalidState, got %v", hours, err)
		}
		if !strings.Contains(err.Error(), "2 hours before departure") {
			t.Errorf("message should name the 2-hour rule, got %q", err.Error())
		}
	}
}

func TestRefundAmount(t *testing.T) {
	price := decimal.RequireFromString("45.50")
	tests := []struct {
		percent string
		want    string
	}{
		{"100", "45.5"},
		{"50", "22.75"},
		{"0", "0"},
		{"33.333", "15.17"},
	}
	for _, tt := range tests {
		got, err := domain.RefundAmount(price, decimal.RequireFromString(tt.percent))
		if err != nil {
			t.Fatalf("%s%%: unexpected error: %v", tt.percent, err)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%s%%: expected %s, got %s", tt.percent, tt.want, got)
		}
	}
}

func TestRefundAmount_OutOfRange(t *testing.T) {
	price := decimal.NewFromInt(10)
	for _, p := range []string{"-1", "100.01"} {
		if _, err := domain.RefundAmount(price, decimal.RequireFromString(p)); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s%%: expected ErrInvalidInput, got %v", p, err)
		}
	}
}
