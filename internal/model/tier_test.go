package model_test

import (
	"testing"

	"github.com/jmehdipour/qmail/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassifyTier_Boundaries(t *testing.T) {
	cases := []struct {
		amount string
		want   model.Tier
	}{
		{"-5", model.TierBit},
		{"0", model.TierBit},
		{"19.99", model.TierBit},
		{"20", model.TierByte},
		{"49.99", model.TierByte},
		{"50", model.TierKilo},
		{"99.99", model.TierKilo},
		{"100", model.TierMega},
		{"999.99", model.TierMega},
		{"1000", model.TierGiga},
		{"250000", model.TierGiga},
	}

	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			assert.Equal(t, tc.want, model.ClassifyTier(decimal.RequireFromString(tc.amount)))
		})
	}
}

func TestParseTier(t *testing.T) {
	tier, ok := model.ParseTier(" KILO ")
	assert.True(t, ok)
	assert.Equal(t, model.TierKilo, tier)

	tier, ok = model.ParseTier("tera")
	assert.False(t, ok)
	assert.Equal(t, model.TierBit, tier)
}
