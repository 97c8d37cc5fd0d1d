package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config keys holding refund percentages (0-100).
const (
	ConfigRefund24h = "REFUND_24H_PERCENT"
	ConfigRefund12h = "REFUND_12H_PERCENT"
	ConfigRefund2h  = "REFUND_2H_PERCENT"
)

// RefundTier maps a minimum lead time before departure to the config key
// holding the refund percentage for that window.
type RefundTier struct {
	MinHours  float64
	ConfigKey string
}

// RefundTiers are evaluated top-down; the first tier whose MinHours is met wins.
// Lead times below the last tier are not refundable and cannot be cancelled.
var RefundTiers = []RefundTier{
	{MinHours: 24, ConfigKey: ConfigRefund24h},
	{MinHours: 12, ConfigKey: ConfigRefund12h},
	{MinHours: 2, ConfigKey: ConfigRefund2h},
}

// MatchRefundTier returns the tier that applies to a cancellation made
// hoursUntilDeparture before the trip leaves.
func MatchRefundTier(tiers []RefundTier, hoursUntilDeparture float64) (RefundTier, error) {
	for _, tier := range tiers {
		if hoursUntilDeparture >= tier.MinHours {
			return tier, nil
		}
	}
	min := 0.0
	if len(tiers) > 0 {
		min = tiers[len(tiers)-1].MinHours
	}
	return RefundTier{}, fmt.Errorf("%w: cancellations must be made at least %g hours before departure", ErrInvalidState, min)
}

var hundred = decimal.NewFromInt(100)

// RefundAmount applies percent (0-100) to price, rounded to cents.
func RefundAmount(price, percent decimal.Decimal) (decimal.Decimal, error) {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("%w: refund percentage %s outside 0-100", ErrInvalidInput, percent)
	}
	return price.Mul(percent).Div(hundred).Round(2), nil
}
