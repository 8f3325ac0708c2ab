package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/billing"
	"venue-billing-backend/internal/model"
	"venue-billing-backend/internal/testfixtures"
)

func TestGormResolver_Resolve(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	seed := testfixtures.NewSeeder(t, db)
	ctx := context.Background()

	table := seed.Table(1, "T1")
	seed.FixedPricing(table.ID, 1, "150.00")
	seed.PerMinutePricing(table.ID, 2, "2.00", 60, false)

	inactive := seed.PerMinutePricing(table.ID, 3, "9.00", 0, true)
	require.NoError(t, db.Model(&inactive).Update("active", false).Error)

	r := NewGormResolver(db)

	p, err := r.Resolve(ctx, table.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.PricingFixed, p.Kind)
	assert.True(t, decimal.RequireFromString("150").Equal(p.FixedAmount))

	p, err = r.Resolve(ctx, table.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, model.PricingPerMinute, p.Kind)
	assert.True(t, decimal.RequireFromString("2").Equal(p.RatePerMinute))
	assert.Equal(t, 60, p.CapMinutes)
	assert.True(t, p.Capped())

	_, err = r.Resolve(ctx, table.ID, 3)
	assert.ErrorIs(t, err, apperr.ErrPricingNotConfigured, "inactive policies are ignored")

	_, err = r.Resolve(ctx, table.ID+100, 1)
	assert.ErrorIs(t, err, apperr.ErrPricingNotConfigured)
}

func TestLoadActive_AmbiguousPolicies(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	seed := testfixtures.NewSeeder(t, db)

	table := seed.Table(1, "T1")
	seed.FixedPricing(table.ID, 1, "150.00")
	seed.FixedPricing(table.ID, 1, "200.00")

	_, err := LoadActive(db, table.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrPricingNotConfigured)
	assert.Contains(t, err.Error(), "more than one active policy")

	_, err = NewGormResolver(db).Resolve(context.Background(), table.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrPricingNotConfigured)
}

func TestFromRow_RejectsInconsistentRows(t *testing.T) {
	_, err := FromRow(model.Pricing{ID: 1, Kind: model.PricingFixed})
	assert.ErrorIs(t, err, apperr.ErrPricingNotConfigured)

	_, err = FromRow(model.Pricing{ID: 2, Kind: model.PricingPerMinute})
	assert.ErrorIs(t, err, apperr.ErrPricingNotConfigured)

	_, err = FromRow(model.Pricing{ID: 3, Kind: "hourly", RatePerMinute: decimal.NewNullDecimal(decimal.NewFromInt(1))})
	assert.ErrorIs(t, err, apperr.ErrPricingNotConfigured)
}

type countingResolver struct {
	calls int
	err   error
}

func (c *countingResolver) Resolve(context.Context, int64, int64) (billing.Policy, error) {
	c.calls++
	if c.err != nil {
		return billing.Policy{}, c.err
	}
	return billing.Policy{Kind: model.PricingFixed, FixedAmount: decimal.NewFromInt(50)}, nil
}

func TestCached(t *testing.T) {
	next := &countingResolver{}
	c := NewCached(next, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := c.Resolve(ctx, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, model.PricingFixed, p.Kind)
	}
	assert.Equal(t, 1, next.calls)

	_, err := c.Resolve(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls, "different pairs are cached separately")

	failing := &countingResolver{err: apperr.ErrPricingNotConfigured}
	c = NewCached(failing, time.Minute)
	for i := 0; i < 2; i++ {
		_, err := c.Resolve(ctx, 1, 1)
		assert.ErrorIs(t, err, apperr.ErrPricingNotConfigured)
	}
	assert.Equal(t, 2, failing.calls, "errors are not cached")
}
