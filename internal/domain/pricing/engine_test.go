//go:build unit

package pricing_test

import (
	"encoding/json"
	"testing"

	"freshfold/internal/domain/pricing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rates = pricing.RateCard{
	LaundryPerPoundCents:   175,
	LaundryMinimumCents:    3000,
	DryCleanPerItemCents:   650,
	CleaningBaseCents:      9000,
	CleaningPerBedroom:     2500,
	CleaningPerBathroom:    2000,
	CleaningDeepMultiplier: 15000,
	DeliveryFeeCents:       500,
	TaxRateBps:             875,
}

func TestEngine_Quote(t *testing.T) {
	engine := pricing.NewEngine(rates)

	t.Run("laundry by weight", func(t *testing.T) {
		q, err := engine.Quote(pricing.Params{ServiceType: "laundry", Laundry: &pricing.LaundryParams{WeightLbs: 20}})
		require.NoError(t, err)

		want := pricing.Quote{
			LineItems: []pricing.LineItem{
				{Code: "wash_fold", Description: "Wash and fold", Quantity: 20, UnitCents: 175, AmountCents: 3500},
			},
			Subtotal:    3500,
			Tax:         306,
			DeliveryFee: 500,
			Total:       4306,
		}
		if diff := cmp.Diff(want, q); diff != "" {
			t.Errorf("Quote mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("laundry minimum and dry cleaning", func(t *testing.T) {
		q, err := engine.Quote(pricing.Params{ServiceType: "laundry", Laundry: &pricing.LaundryParams{WeightLbs: 10, DryCleanItems: 2}})
		require.NoError(t, err)

		require.Len(t, q.LineItems, 3)
		assert.Equal(t, "minimum_adjustment", q.LineItems[1].Code)
		assert.Equal(t, int64(1250), q.LineItems[1].AmountCents)
		assert.Equal(t, int64(3000+1300), q.Subtotal)
		assert.Equal(t, q.Subtotal+q.Tax+q.DeliveryFee, q.Total)
	})

	t.Run("deep cleaning surcharge", func(t *testing.T) {
		q, err := engine.Quote(pricing.Params{ServiceType: "cleaning", Cleaning: &pricing.CleaningParams{Bedrooms: 2, Bathrooms: 1, Deep: true}})
		require.NoError(t, err)

		// 9000 + 5000 + 2000 = 16000, surcharge 50% = 8000
		assert.Equal(t, int64(24000), q.Subtotal)
		assert.Equal(t, int64(2100), q.Tax)
		assert.Equal(t, int64(0), q.DeliveryFee)
		assert.Equal(t, int64(26100), q.Total)
	})

	t.Run("same input same quote", func(t *testing.T) {
		p := pricing.Params{ServiceType: "cleaning", Cleaning: &pricing.CleaningParams{Bedrooms: 3}}
		a, err := engine.Quote(p)
		require.NoError(t, err)
		b, err := engine.Quote(p)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("invalid params", func(t *testing.T) {
		cases := []pricing.Params{
			{ServiceType: "laundry"},
			{ServiceType: "laundry", Laundry: &pricing.LaundryParams{}},
			{ServiceType: "laundry", Laundry: &pricing.LaundryParams{WeightLbs: -1}},
			{ServiceType: "laundry", Laundry: &pricing.LaundryParams{WeightLbs: 201}},
			{ServiceType: "cleaning", Cleaning: &pricing.CleaningParams{Bedrooms: 21}},
			{ServiceType: "gardening"},
		}
		for _, p := range cases {
			_, err := engine.Quote(p)
			assert.ErrorIs(t, err, pricing.ErrInvalidServiceParams)
		}
	})
}

func TestParseParams(t *testing.T) {
	p, err := pricing.ParseParams("laundry", json.RawMessage(`{"weight_lbs":12,"dry_clean_items":1}`))
	require.NoError(t, err)
	require.NotNil(t, p.Laundry)
	assert.Equal(t, int64(12), p.Laundry.WeightLbs)

	_, err = pricing.ParseParams("laundry", json.RawMessage(`{"weight":12}`))
	assert.ErrorIs(t, err, pricing.ErrInvalidServiceParams)

	_, err = pricing.ParseParams("cleaning", nil)
	assert.ErrorIs(t, err, pricing.ErrInvalidServiceParams)

	_, err = pricing.ParseParams("cleaning", json.RawMessage(`{"bedrooms":"two"}`))
	assert.ErrorIs(t, err, pricing.ErrInvalidServiceParams)
}
