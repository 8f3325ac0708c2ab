package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingKind selects how occupancy of a table is priced.
type PricingKind string

const (
	PricingFixed     PricingKind = "fixed"
	PricingPerMinute PricingKind = "per_minute"
)

// Pricing is the catalog row scoped to a (table, service type) pair.
type Pricing struct {
	ID            int64               `gorm:"primaryKey"`
	TableID       int64               `gorm:"index:idx_pricing_lookup;not null"`
	ServiceTypeID int64               `gorm:"index:idx_pricing_lookup;not null"`
	Kind          PricingKind         `gorm:"size:16;not null"`
	FixedAmount   decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	RatePerMinute decimal.NullDecimal `gorm:"type:decimal(12,6)"`
	CapMinutes    *int
	UnlimitedTime bool `gorm:"not null"`
	Active        bool `gorm:"index;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
