package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/model"
	"venue-billing-backend/internal/store"
)

// RecordPayment moves an invoice from pending to paid or partial, or from
// partial to paid, and mirrors the status onto its session.
func (e *Engine) RecordPayment(ctx context.Context, in PaymentInput) (model.Invoice, error) {
	if err := in.validate(); err != nil {
		return model.Invoice{}, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	err := apperr.Normalize(e.store.WithTx(ctx, func(tx store.Tx) error {
		inv, err := tx.LockInvoice(in.InvoiceID)
		if err != nil {
			return err
		}
		if !paymentAllowed(inv.PaymentStatus, in.Status) {
			return fmt.Errorf("%w: invoice %s is %s", apperr.ErrInvalidTransition, inv.Number, inv.PaymentStatus)
		}

		fields := map[string]any{"payment_status": in.Status}
		if in.Method != "" {
			fields["payment_method"] = in.Method
		}
		if in.Status == model.PaymentPaid {
			fields["paid_at"] = e.now()
		}
		if err := tx.UpdateInvoice(inv.ID, fields); err != nil {
			return err
		}
		if inv.SessionID == nil {
			return nil
		}
		return tx.UpdateSession(*inv.SessionID, map[string]any{"payment_status": in.Status})
	}))
	if err != nil {
		return model.Invoice{}, err
	}

	inv, err := e.store.GetInvoice(ctx, in.InvoiceID)
	if err != nil {
		return model.Invoice{}, apperr.Normalize(err)
	}
	e.log.Info("payment recorded",
		zap.String("invoice", inv.Number),
		zap.String("status", string(inv.PaymentStatus)),
	)
	return inv, nil
}

func paymentAllowed(from, to model.PaymentStatus) bool {
	switch from {
	case model.PaymentPending:
		return to == model.PaymentPaid || to == model.PaymentPartial
	case model.PaymentPartial:
		return to == model.PaymentPaid
	}
	return false
}

// GetInvoice returns an invoice with its lines.
func (e *Engine) GetInvoice(ctx context.Context, id int64) (model.Invoice, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	inv, err := e.store.GetInvoice(ctx, id)
	return inv, apperr.Normalize(err)
}

// GetSessionInvoice returns the invoice issued when a session closed.
func (e *Engine) GetSessionInvoice(ctx context.Context, sessionID int64) (model.Invoice, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	inv, err := e.store.GetInvoiceBySession(ctx, sessionID)
	return inv, apperr.Normalize(err)
}
