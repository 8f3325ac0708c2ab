package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/billing"
	"venue-billing-backend/internal/model"
	"venue-billing-backend/internal/sequence"
	"venue-billing-backend/internal/store"
)

// CloseSession computes the final charge of a session, frees its table and,
// unless SkipInvoice is set, issues the invoice. All of it commits in one
// transaction; a failure anywhere leaves the session open.
func (e *Engine) CloseSession(ctx context.Context, in CloseInput) (CloseResult, error) {
	if err := in.validate(); err != nil {
		return CloseResult{}, err
	}

	var (
		invoice    *model.Invoice
		tableLabel string
	)
	session, err := e.mutate(ctx, in.SessionID, func(tx store.Tx, s *model.Session, now time.Time) error {
		if s.Closed() {
			return fmt.Errorf("%w: session %s is %s", apperr.ErrAlreadyClosed, s.Code, s.Status)
		}

		excluded := s.ExcludedDuration + pausedFor(s, now)
		minutes := billing.BillableMinutes(s.StartTime, now, excluded)
		occupancy := billing.OccupancyCost(billing.PolicyOf(*s), minutes)

		s.Status = model.SessionCompleted
		s.EndTime = &now
		s.PausedAt = nil
		s.ExcludedDuration = excluded
		s.BillableMinutes = minutes
		s.OccupancyAmount = occupancy
		s.TotalAmount = occupancy.Add(s.ConsumableSubtotal)
		s.PaymentStatus = model.PaymentPending
		if in.Settle || in.SkipInvoice {
			s.PaymentStatus = model.PaymentPaid
		}

		if err := tx.UpdateSession(s.ID, map[string]any{
			"status":            s.Status,
			"end_time":          now,
			"paused_at":         nil,
			"excluded_duration": s.ExcludedDuration,
			"billable_minutes":  s.BillableMinutes,
			"occupancy_amount":  s.OccupancyAmount,
			"total_amount":      s.TotalAmount,
			"payment_status":    s.PaymentStatus,
		}); err != nil {
			return err
		}

		table, err := tx.LockTable(s.TableID)
		if err != nil {
			return err
		}
		tableLabel = table.Label
		if table.Status == model.TableOccupied {
			if err := tx.SetTableStatus(table.ID, model.TableAvailable); err != nil {
				return err
			}
		}

		if in.SkipInvoice {
			return nil
		}
		inv, err := e.assembleInvoice(tx, *s, table.Label, in, now)
		if err != nil {
			return err
		}
		invoice = &inv
		return nil
	})
	if err != nil {
		return CloseResult{}, err
	}

	result := CloseResult{Session: session, Invoice: invoice}
	fields := []zap.Field{
		zap.Int64("session_id", session.ID),
		zap.String("code", session.Code),
		zap.Int64("billable_minutes", session.BillableMinutes),
		zap.String("total", session.TotalAmount.StringFixed(2)),
	}
	if invoice != nil {
		fields = append(fields, zap.String("invoice", invoice.Number))
	}
	e.log.Info("session closed", fields...)

	if e.notifier != nil {
		e.notifier.SessionClosed(result, tableLabel)
	}
	return result, nil
}

// assembleInvoice writes the invoice of a session that is being closed in tx.
func (e *Engine) assembleInvoice(tx store.Tx, s model.Session, tableLabel string, in CloseInput, now time.Time) (model.Invoice, error) {
	orders, err := tx.ListOrders(s.ID)
	if err != nil {
		return model.Invoice{}, err
	}
	totals, err := billing.ComputeTotals(s.OccupancyAmount.Add(s.ConsumableSubtotal), e.cfg.TaxRate, in.Discount)
	if err != nil {
		return model.Invoice{}, err
	}
	n, err := tx.NextSequence(sequence.Invoice, sequence.MonthScope(s.OrganizationID, now, e.cfg.Location))
	if err != nil {
		return model.Invoice{}, err
	}

	sessionID := s.ID
	inv := model.Invoice{
		Number:         sequence.FormatInvoiceNumber(e.cfg.InvoicePrefix, s.OrganizationID, now, e.cfg.Location, n),
		SessionID:      &sessionID,
		OrganizationID: s.OrganizationID,
		CustomerName:   customerName(s),
		CustomerPhone:  s.GuestPhone,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.Tax,
		DiscountAmount: totals.Discount,
		TotalAmount:    totals.Total,
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  model.PaymentPending,
		CreatedBy:      in.ActorID,
		Items:          billing.InvoiceLines(s, tableLabel, orders),
	}
	if in.Settle {
		inv.PaymentStatus = model.PaymentPaid
		inv.PaidAt = &now
	}
	if err := tx.CreateInvoice(&inv); err != nil {
		return model.Invoice{}, err
	}
	return inv, nil
}

func customerName(s model.Session) string {
	switch {
	case s.GuestName != "":
		return s.GuestName
	case s.CustomerID != nil:
		return fmt.Sprintf("customer #%d", *s.CustomerID)
	}
	return "Walk-in"
}
