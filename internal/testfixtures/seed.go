package testfixtures

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"venue-billing-backend/internal/model"
)

// Seeder inserts catalog rows the engine reads but never creates.
type Seeder struct {
	tb testing.TB
	db *gorm.DB
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(tb testing.TB, db *gorm.DB) *Seeder {
	return &Seeder{tb: tb, db: db}
}

func (s *Seeder) create(v any) {
	s.tb.Helper()
	if err := s.db.Create(v).Error; err != nil {
		s.tb.Fatalf("seed %T: %v", v, err)
	}
}

// Table creates an available table.
func (s *Seeder) Table(orgID int64, label string) model.Table {
	s.tb.Helper()
	t := model.Table{OrganizationID: orgID, Label: label, Status: model.TableAvailable}
	s.create(&t)
	return t
}

// FixedPricing creates an active fixed-price policy.
func (s *Seeder) FixedPricing(tableID, serviceTypeID int64, amount string) model.Pricing {
	s.tb.Helper()
	p := model.Pricing{
		TableID:       tableID,
		ServiceTypeID: serviceTypeID,
		Kind:          model.PricingFixed,
		FixedAmount:   decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Active:        true,
	}
	s.create(&p)
	return p
}

// PerMinutePricing creates an active per-minute policy. capMinutes <= 0
// leaves the cap unset.
func (s *Seeder) PerMinutePricing(tableID, serviceTypeID int64, rate string, capMinutes int, unlimited bool) model.Pricing {
	s.tb.Helper()
	p := model.Pricing{
		TableID:       tableID,
		ServiceTypeID: serviceTypeID,
		Kind:          model.PricingPerMinute,
		RatePerMinute: decimal.NewNullDecimal(decimal.RequireFromString(rate)),
		UnlimitedTime: unlimited,
		Active:        true,
	}
	if capMinutes > 0 {
		p.CapMinutes = &capMinutes
	}
	s.create(&p)
	return p
}

// Item creates an available stocked item.
func (s *Seeder) Item(orgID int64, name, price string, stock int) model.Item {
	s.tb.Helper()
	it := model.Item{
		OrganizationID: orgID,
		Name:           name,
		Price:          decimal.RequireFromString(price),
		StockQuantity:  stock,
		IsAvailable:    true,
	}
	s.create(&it)
	return it
}
