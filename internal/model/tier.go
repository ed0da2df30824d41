package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is the class label embedded in a mailbox record.
type Tier string

const (
	TierBit  Tier = "bit"
	TierByte Tier = "byte"
	TierKilo Tier = "kilo"
	TierMega Tier = "mega"
	TierGiga Tier = "giga"
)

func (t Tier) String() string { return string(t) }

func (t Tier) Valid() bool {
	switch t {
	case TierBit, TierByte, TierKilo, TierMega, TierGiga:
		return true
	default:
		return false
	}
}

// tierFloors are inclusive lower bounds, highest first.
var tierFloors = []struct {
	tier  Tier
	floor decimal.Decimal
}{
	{TierGiga, decimal.NewFromInt(1000)},
	{TierMega, decimal.NewFromInt(100)},
	{TierKilo, decimal.NewFromInt(50)},
	{TierByte, decimal.NewFromInt(20)},
}

// ClassifyTier maps a paid amount to its tier. Anything below the byte
// floor, zero and negative amounts included, is bit.
func ClassifyTier(amount decimal.Decimal) Tier {
	for _, f := range tierFloors {
		if amount.GreaterThanOrEqual(f.floor) {
			return f.tier
		}
	}
	return TierBit
}

// ParseTier normalizes input.
// Returns (value, true) if valid; otherwise (bit, false).
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return TierBit, false
	}
	return t, true
}
