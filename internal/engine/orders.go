package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/model"
	"venue-billing-backend/internal/store"
)

// AttachOrder sells quantity units of an item into an active session. Stock,
// the order row and the session totals change together or not at all.
func (e *Engine) AttachOrder(ctx context.Context, in OrderInput) (OrderResult, error) {
	if err := in.validate(); err != nil {
		return OrderResult{}, err
	}

	var order model.SessionOrder
	session, err := e.mutate(ctx, in.SessionID, func(tx store.Tx, s *model.Session, now time.Time) error {
		if s.Status != model.SessionActive {
			return fmt.Errorf("%w: cannot order into a %s session", apperr.ErrInvalidTransition, s.Status)
		}

		item, err := tx.LockItem(in.ItemID)
		if err != nil {
			return err
		}
		if !item.IsAvailable || item.OrganizationID != s.OrganizationID {
			return fmt.Errorf("%w: %s", apperr.ErrItemUnavailable, item.Name)
		}
		if item.StockQuantity < in.Quantity {
			return fmt.Errorf("%w: %s has %d left, %d requested", apperr.ErrInsufficientStock, item.Name, item.StockQuantity, in.Quantity)
		}
		if err := tx.DecrementStock(item.ID, in.Quantity); err != nil {
			return err
		}

		order = model.SessionOrder{
			SessionID: s.ID,
			ItemID:    item.ID,
			ItemName:  item.Name,
			Quantity:  in.Quantity,
			UnitPrice: item.Price,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2),
			OrderedAt: now,
			ServedBy:  in.ActorID,
			Notes:     in.Notes,
		}
		if err := tx.CreateOrder(&order); err != nil {
			return err
		}
		return tx.AddConsumableAmount(s.ID, order.LineTotal)
	})
	if err != nil {
		return OrderResult{}, err
	}

	e.log.Info("order attached",
		zap.Int64("session_id", session.ID),
		zap.Int64("item_id", order.ItemID),
		zap.Int("quantity", order.Quantity),
		zap.String("line_total", order.LineTotal.StringFixed(2)),
	)
	return OrderResult{Order: order, Session: session}, nil
}

// ListOrders returns the orders of a session in the order they were placed.
func (e *Engine) ListOrders(ctx context.Context, sessionID int64) ([]model.SessionOrder, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if _, err := e.store.GetSession(ctx, sessionID); err != nil {
		return nil, apperr.Normalize(err)
	}
	orders, err := e.store.ListOrders(ctx, sessionID)
	return orders, apperr.Normalize(err)
}
