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

// StartSession opens a session on an available table, captures its pricing
// and marks the table occupied. The policy is read inside the transaction
// that locks the table, never from the quote cache.
func (e *Engine) StartSession(ctx context.Context, in StartInput) (model.Session, error) {
	if err := in.validate(); err != nil {
		return model.Session{}, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var session model.Session
	err := e.locked(ctx, tableKey(in.TableID), func(tx store.Tx) error {
		table, err := tx.LockTable(in.TableID)
		if err != nil {
			return err
		}
		if table.Status != model.TableAvailable {
			return fmt.Errorf("%w: table %s is %s", apperr.ErrResourceBusy, table.Label, table.Status)
		}
		policy, err := tx.ActivePricing(table.ID, in.ServiceTypeID)
		if err != nil {
			return err
		}

		now := e.now()
		n, err := tx.NextSequence(sequence.SessionCode, sequence.DayScope(table.OrganizationID, now, e.cfg.Location))
		if err != nil {
			return err
		}

		session = model.Session{
			Code:           sequence.FormatSessionCode(e.cfg.SessionCodePrefix, table.OrganizationID, now, e.cfg.Location, n),
			TableID:        table.ID,
			OrganizationID: table.OrganizationID,
			ServiceTypeID:  in.ServiceTypeID,
			CustomerID:     in.CustomerID,
			GuestName:      in.GuestName,
			GuestPhone:     in.GuestPhone,
			Status:         model.SessionActive,
			StartTime:      now,
			PaymentStatus:  model.PaymentPending,
			Notes:          in.Notes,
			CreatedBy:      in.ActorID,
		}
		billing.Capture(&session, policy)
		if err := tx.CreateSession(&session); err != nil {
			return err
		}
		return tx.SetTableStatus(table.ID, model.TableOccupied)
	})
	if err != nil {
		return model.Session{}, err
	}

	e.log.Info("session started",
		zap.Int64("session_id", session.ID),
		zap.String("code", session.Code),
		zap.Int64("table_id", session.TableID),
		zap.String("pricing", string(session.PricingKind)),
	)
	return session, nil
}

// mutate locks session id, hands it to fn and returns the stored row after fn
// committed.
func (e *Engine) mutate(ctx context.Context, id int64, fn func(tx store.Tx, s *model.Session, now time.Time) error) (model.Session, error) {
	if id <= 0 {
		return model.Session{}, fmt.Errorf("%w: session id is required", apperr.ErrValidation)
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var session model.Session
	err := e.locked(ctx, sessionKey(id), func(tx store.Tx) error {
		s, err := tx.LockSession(id)
		if err != nil {
			return err
		}
		if err := fn(tx, &s, e.now()); err != nil {
			return err
		}
		session, err = tx.LockSession(id)
		return err
	})
	if err != nil {
		return model.Session{}, err
	}
	return session, nil
}

// PauseSession stops the billing clock of an active session.
func (e *Engine) PauseSession(ctx context.Context, id int64) (model.Session, error) {
	session, err := e.mutate(ctx, id, func(tx store.Tx, s *model.Session, now time.Time) error {
		if s.Status != model.SessionActive {
			return fmt.Errorf("%w: cannot pause a %s session", apperr.ErrInvalidTransition, s.Status)
		}
		return tx.UpdateSession(s.ID, map[string]any{
			"status":    model.SessionPaused,
			"paused_at": now,
		})
	})
	if err != nil {
		return session, err
	}
	e.log.Info("session paused", zap.Int64("session_id", session.ID))
	return session, nil
}

// ResumeSession restarts the billing clock and excludes the paused interval.
func (e *Engine) ResumeSession(ctx context.Context, id int64) (model.Session, error) {
	session, err := e.mutate(ctx, id, func(tx store.Tx, s *model.Session, now time.Time) error {
		if s.Status != model.SessionPaused {
			return fmt.Errorf("%w: cannot resume a %s session", apperr.ErrInvalidTransition, s.Status)
		}
		return tx.UpdateSession(s.ID, map[string]any{
			"status":            model.SessionActive,
			"paused_at":         nil,
			"excluded_duration": s.ExcludedDuration + pausedFor(s, now),
		})
	})
	if err != nil {
		return session, err
	}
	e.log.Info("session resumed",
		zap.Int64("session_id", session.ID),
		zap.Duration("excluded", session.ExcludedDuration),
	)
	return session, nil
}

// pausedFor is the length of the running pause of s at now.
func pausedFor(s *model.Session, now time.Time) time.Duration {
	if s.PausedAt == nil || !now.After(*s.PausedAt) {
		return 0
	}
	return now.Sub(*s.PausedAt)
}

// CancelSession ends a session without billing and frees its table. Orders
// already served stay recorded; their stock is not returned.
func (e *Engine) CancelSession(ctx context.Context, id int64) (model.Session, error) {
	session, err := e.mutate(ctx, id, func(tx store.Tx, s *model.Session, now time.Time) error {
		if s.Closed() {
			return fmt.Errorf("%w: session %s is %s", apperr.ErrAlreadyClosed, s.Code, s.Status)
		}
		if err := tx.UpdateSession(s.ID, map[string]any{
			"status":            model.SessionCancelled,
			"end_time":          now,
			"paused_at":         nil,
			"excluded_duration": s.ExcludedDuration + pausedFor(s, now),
		}); err != nil {
			return err
		}
		return releaseTable(tx, s.TableID)
	})
	if err != nil {
		return session, err
	}
	e.log.Info("session cancelled", zap.Int64("session_id", session.ID), zap.String("code", session.Code))
	return session, nil
}

// releaseTable frees the table unless staff moved it out of occupied meanwhile.
func releaseTable(tx store.Tx, tableID int64) error {
	table, err := tx.LockTable(tableID)
	if err != nil {
		return err
	}
	if table.Status != model.TableOccupied {
		return nil
	}
	return tx.SetTableStatus(table.ID, model.TableAvailable)
}

// GetSession returns a session by id.
func (e *Engine) GetSession(ctx context.Context, id int64) (model.Session, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	s, err := e.store.GetSession(ctx, id)
	return s, apperr.Normalize(err)
}

// GetLiveEstimate prices a session as if it closed now, without changing it.
// Closed sessions report their final figures.
func (e *Engine) GetLiveEstimate(ctx context.Context, id int64) (LiveEstimate, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	s, err := e.store.GetSession(ctx, id)
	if err != nil {
		return LiveEstimate{}, apperr.Normalize(err)
	}

	now := e.now()
	est := LiveEstimate{
		SessionID:          s.ID,
		Code:               s.Code,
		Status:             s.Status,
		At:                 now,
		ConsumableSubtotal: s.ConsumableSubtotal,
	}
	switch s.Status {
	case model.SessionCompleted:
		est.ElapsedMinutes = s.BillableMinutes
		est.BillableMinutes = s.BillableMinutes
		est.OccupancyAmount = s.OccupancyAmount
		est.MaxOccupancyAmount = s.OccupancyAmount
		est.CurrentTotal = s.TotalAmount
	case model.SessionCancelled:
		est.CurrentTotal = s.ConsumableSubtotal
	default:
		est.Estimate = billing.EstimateAt(billing.PolicyOf(s), s.StartTime, now, s.ExcludedDuration, s.PausedAt)
		est.CurrentTotal = est.OccupancyAmount.Add(s.ConsumableSubtotal)
	}
	return est, nil
}
