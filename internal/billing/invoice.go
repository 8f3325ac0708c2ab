package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/model"
)

// Totals are the money figures of an invoice.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals applies taxRate to subtotal and subtracts discount. The
// discount may not be negative nor exceed the taxed subtotal.
func ComputeTotals(subtotal, taxRate, discount decimal.Decimal) (Totals, error) {
	if discount.IsNegative() {
		return Totals{}, fmt.Errorf("%w: discount must not be negative", apperr.ErrValidation)
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	gross := subtotal.Add(tax)
	discount = discount.Round(2)
	if discount.GreaterThan(gross) {
		return Totals{}, fmt.Errorf("%w: discount %s exceeds invoice amount %s", apperr.ErrValidation, discount.StringFixed(2), gross.StringFixed(2))
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    gross.Sub(discount),
	}, nil
}

// InvoiceLines builds one occupancy line (when it costs anything) and one line
// per consumable order.
func InvoiceLines(s model.Session, tableLabel string, orders []model.SessionOrder) []model.InvoiceItem {
	lines := make([]model.InvoiceItem, 0, len(orders)+1)
	if s.OccupancyAmount.IsPositive() {
		lines = append(lines, model.InvoiceItem{
			ItemType:    model.InvoiceItemTableSession,
			RefID:       s.ID,
			Description: occupancyDescription(s, tableLabel),
			Quantity:    1,
			UnitPrice:   s.OccupancyAmount,
			TotalPrice:  s.OccupancyAmount,
		})
	}
	for _, o := range orders {
		lines = append(lines, model.InvoiceItem{
			ItemType:    model.InvoiceItemConsumable,
			RefID:       o.ItemID,
			Description: o.ItemName,
			Quantity:    o.Quantity,
			UnitPrice:   o.UnitPrice,
			TotalPrice:  o.LineTotal,
		})
	}
	return lines
}

func occupancyDescription(s model.Session, tableLabel string) string {
	if s.PricingKind == model.PricingFixed {
		return fmt.Sprintf("Table %s - fixed game (%d min)", tableLabel, s.BillableMinutes)
	}
	desc := fmt.Sprintf("Table %s - %d min @ %s/min", tableLabel, s.BillableMinutes, rateString(s.RatePerMinute))
	if p := PolicyOf(s); p.Capped() && s.BillableMinutes > int64(p.CapMinutes) {
		desc += fmt.Sprintf(" (capped at %d min)", p.CapMinutes)
	}
	return desc
}

// rateString prints whole-cent rates with two decimals and finer rates in full.
func rateString(rate decimal.Decimal) string {
	if rate.Equal(rate.Round(2)) {
		return rate.StringFixed(2)
	}
	return rate.String()
}
