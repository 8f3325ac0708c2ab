// Package pricing resolves the active pricing policy of a table and service
// type.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/billing"
	"venue-billing-backend/internal/model"
)

// Resolver returns the single active policy for a (table, service type) pair.
type Resolver interface {
	Resolve(ctx context.Context, tableID, serviceTypeID int64) (billing.Policy, error)
}

type gormResolver struct {
	db *gorm.DB
}

// NewGormResolver reads policies from the pricings table.
func NewGormResolver(db *gorm.DB) Resolver {
	return &gormResolver{db: db}
}

func (r *gormResolver) Resolve(ctx context.Context, tableID, serviceTypeID int64) (billing.Policy, error) {
	return LoadActive(r.db.WithContext(ctx), tableID, serviceTypeID)
}

// LoadActive reads the active policy for a (table, service type) pair. Zero
// or several active rows both mean the pair is not configured.
func LoadActive(db *gorm.DB, tableID, serviceTypeID int64) (billing.Policy, error) {
	var rows []model.Pricing
	err := db.
		Where("table_id = ? AND service_type_id = ? AND active = ?", tableID, serviceTypeID, true).
		Order("id").
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return billing.Policy{}, fmt.Errorf("failed to load pricing for table %d: %w", tableID, err)
	}
	switch len(rows) {
	case 0:
		return billing.Policy{}, fmt.Errorf("%w: table %d, service type %d", apperr.ErrPricingNotConfigured, tableID, serviceTypeID)
	case 1:
		return FromRow(rows[0])
	default:
		return billing.Policy{}, fmt.Errorf("%w: table %d, service type %d has more than one active policy",
			apperr.ErrPricingNotConfigured, tableID, serviceTypeID)
	}
}

// FromRow converts a catalog row into a policy, rejecting rows where the
// amount for the kind is missing.
func FromRow(row model.Pricing) (billing.Policy, error) {
	p := billing.Policy{Kind: row.Kind, UnlimitedTime: row.UnlimitedTime}
	switch row.Kind {
	case model.PricingFixed:
		if !row.FixedAmount.Valid {
			return p, fmt.Errorf("%w: pricing %d has no fixed amount", apperr.ErrPricingNotConfigured, row.ID)
		}
		p.FixedAmount = row.FixedAmount.Decimal
		p.RatePerMinute = decimal.Zero
	case model.PricingPerMinute:
		if !row.RatePerMinute.Valid {
			return p, fmt.Errorf("%w: pricing %d has no rate", apperr.ErrPricingNotConfigured, row.ID)
		}
		p.RatePerMinute = row.RatePerMinute.Decimal
		p.FixedAmount = decimal.Zero
		if row.CapMinutes != nil {
			p.CapMinutes = *row.CapMinutes
		}
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Cached memoizes successful lookups of next for ttl.
type Cached struct {
	next  Resolver
	cache *cache.Cache
	ttl   time.Duration
}

// NewCached wraps next with an in-memory cache.
func NewCached(next Resolver, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (c *Cached) Resolve(ctx context.Context, tableID, serviceTypeID int64) (billing.Policy, error) {
	key := fmt.Sprintf("%d:%d", tableID, serviceTypeID)
	if p, found := c.cache.Get(key); found {
		return p.(billing.Policy), nil
	}
	p, err := c.next.Resolve(ctx, tableID, serviceTypeID)
	if err != nil {
		return p, err
	}
	c.cache.Set(key, p, c.ttl)
	return p, nil
}

