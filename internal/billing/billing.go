// Package billing prices table occupancy and assembles invoice totals. All
// functions are pure.
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/model"
)

// Policy holds the numeric pricing parameters captured onto a session.
type Policy struct {
	Kind          model.PricingKind
	FixedAmount   decimal.Decimal
	RatePerMinute decimal.Decimal
	CapMinutes    int // 0 means no cap configured
	UnlimitedTime bool
}

// Validate checks that exactly the amount matching Kind is meaningful.
func (p Policy) Validate() error {
	switch p.Kind {
	case model.PricingFixed:
		if p.FixedAmount.IsNegative() {
			return fmt.Errorf("%w: negative fixed amount", apperr.ErrPricingNotConfigured)
		}
	case model.PricingPerMinute:
		if !p.RatePerMinute.IsPositive() {
			return fmt.Errorf("%w: rate per minute must be positive", apperr.ErrPricingNotConfigured)
		}
		if p.CapMinutes < 0 {
			return fmt.Errorf("%w: negative cap", apperr.ErrPricingNotConfigured)
		}
	default:
		return fmt.Errorf("%w: unknown pricing kind %q", apperr.ErrPricingNotConfigured, p.Kind)
	}
	return nil
}

// Capped reports whether time beyond CapMinutes is free.
func (p Policy) Capped() bool {
	return p.Kind == model.PricingPerMinute && !p.UnlimitedTime && p.CapMinutes > 0
}

// PolicyOf returns the policy captured on s.
func PolicyOf(s model.Session) Policy {
	return Policy{
		Kind:          s.PricingKind,
		FixedAmount:   s.FixedAmount,
		RatePerMinute: s.RatePerMinute,
		CapMinutes:    s.CapMinutes,
		UnlimitedTime: s.UnlimitedTime,
	}
}

// Capture copies the numeric parameters of p onto s.
func Capture(s *model.Session, p Policy) {
	s.PricingKind = p.Kind
	s.FixedAmount = p.FixedAmount
	s.RatePerMinute = p.RatePerMinute
	s.CapMinutes = p.CapMinutes
	s.UnlimitedTime = p.UnlimitedTime
}

// BillableMinutes is the wall-clock span minus excluded time, rounded up to
// the next whole minute.
func BillableMinutes(start, end time.Time, excluded time.Duration) int64 {
	d := end.Sub(start) - excluded
	if d <= 0 {
		return 0
	}
	minutes := int64(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	return minutes
}

// OccupancyCost prices minutes of occupancy under p.
func OccupancyCost(p Policy, minutes int64) decimal.Decimal {
	if p.Kind == model.PricingFixed {
		return p.FixedAmount.Round(2)
	}
	if minutes < 0 {
		minutes = 0
	}
	if p.Capped() && minutes > int64(p.CapMinutes) {
		minutes = int64(p.CapMinutes)
	}
	return p.RatePerMinute.Mul(decimal.NewFromInt(minutes)).Round(2)
}

// Estimate is the cost of a session as if it were closed at a given instant.
type Estimate struct {
	ElapsedMinutes     int64           `json:"elapsedMinutes"`
	BillableMinutes    int64           `json:"billableMinutes"`
	OccupancyAmount    decimal.Decimal `json:"occupancyAmount"`
	MaxOccupancyAmount decimal.Decimal `json:"maxOccupancyAmount"`
	RemainingMinutes   *int64          `json:"remainingMinutes,omitempty"`
}

// EstimateAt prices the session at now. When pausedAt is set the running
// pause is excluded too, so paused time is never billable.
func EstimateAt(p Policy, start, now time.Time, excluded time.Duration, pausedAt *time.Time) Estimate {
	if pausedAt != nil && now.After(*pausedAt) {
		excluded += now.Sub(*pausedAt)
	}
	elapsed := BillableMinutes(start, now, excluded)

	est := Estimate{
		ElapsedMinutes:  elapsed,
		BillableMinutes: elapsed,
		OccupancyAmount: OccupancyCost(p, elapsed),
	}

	switch {
	case p.Kind == model.PricingFixed:
		est.MaxOccupancyAmount = est.OccupancyAmount
	case p.Capped():
		limit := int64(p.CapMinutes)
		if est.BillableMinutes > limit {
			est.BillableMinutes = limit
		}
		remaining := limit - elapsed
		if remaining < 0 {
			remaining = 0
		}
		est.RemainingMinutes = &remaining
		est.MaxOccupancyAmount = OccupancyCost(p, limit)
	}
	return est
}
