package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/billing"
	"venue-billing-backend/internal/model"
)

// StartInput opens a session. A registered customer and a guest name are
// mutually exclusive; both may be omitted for anonymous walk-ins.
type StartInput struct {
	TableID       int64
	ServiceTypeID int64
	CustomerID    *int64
	GuestName     string
	GuestPhone    string
	Notes         string
	ActorID       int64
}

func (in *StartInput) validate() error {
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.GuestPhone = strings.TrimSpace(in.GuestPhone)
	switch {
	case in.TableID <= 0:
		return fmt.Errorf("%w: table id is required", apperr.ErrValidation)
	case in.ServiceTypeID <= 0:
		return fmt.Errorf("%w: service type id is required", apperr.ErrValidation)
	case in.CustomerID != nil && *in.CustomerID <= 0:
		return fmt.Errorf("%w: invalid customer id", apperr.ErrValidation)
	case in.CustomerID != nil && (in.GuestName != "" || in.GuestPhone != ""):
		return fmt.Errorf("%w: a session is either for a registered customer or a guest", apperr.ErrValidation)
	case in.GuestPhone != "" && in.GuestName == "":
		return fmt.Errorf("%w: guest phone requires a guest name", apperr.ErrValidation)
	}
	return nil
}

// OrderInput attaches a consumable to a running session.
type OrderInput struct {
	SessionID int64
	ItemID    int64
	Quantity  int
	Notes     string
	ActorID   int64
}

func (in OrderInput) validate() error {
	switch {
	case in.SessionID <= 0:
		return fmt.Errorf("%w: session id is required", apperr.ErrValidation)
	case in.ItemID <= 0:
		return fmt.Errorf("%w: item id is required", apperr.ErrValidation)
	case in.Quantity < 1:
		return fmt.Errorf("%w: quantity must be at least 1", apperr.ErrValidation)
	}
	return nil
}

// OrderResult is the created order and the session totals after it.
type OrderResult struct {
	Order   model.SessionOrder `json:"order"`
	Session model.Session      `json:"session"`
}

// CloseInput finalizes a session.
type CloseInput struct {
	SessionID     int64
	PaymentMethod model.PaymentMethod
	Discount      decimal.Decimal
	// Settle marks the invoice paid immediately.
	Settle bool
	// SkipInvoice closes without an invoice; the session is recorded as paid.
	SkipInvoice bool
	ActorID     int64
}

func (in *CloseInput) validate() error {
	if in.SessionID <= 0 {
		return fmt.Errorf("%w: session id is required", apperr.ErrValidation)
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = model.PaymentCash
	}
	if !in.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", apperr.ErrValidation, in.PaymentMethod)
	}
	if in.Discount.IsNegative() {
		return fmt.Errorf("%w: discount must not be negative", apperr.ErrValidation)
	}
	if in.SkipInvoice && !in.Discount.IsZero() {
		return fmt.Errorf("%w: a discount requires an invoice", apperr.ErrValidation)
	}
	return nil
}

// CloseResult is the completed session and its invoice, if one was requested.
type CloseResult struct {
	Session model.Session  `json:"session"`
	Invoice *model.Invoice `json:"invoice,omitempty"`
}

// PaymentInput records settlement of an invoice.
type PaymentInput struct {
	InvoiceID int64
	Status    model.PaymentStatus
	Method    model.PaymentMethod
}

func (in PaymentInput) validate() error {
	if in.InvoiceID <= 0 {
		return fmt.Errorf("%w: invoice id is required", apperr.ErrValidation)
	}
	if in.Status != model.PaymentPaid && in.Status != model.PaymentPartial {
		return fmt.Errorf("%w: payment status must be paid or partial", apperr.ErrValidation)
	}
	if in.Method != "" && !in.Method.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", apperr.ErrValidation, in.Method)
	}
	return nil
}

// LiveEstimate is the informational cost of a session at a point in time.
type LiveEstimate struct {
	SessionID          int64               `json:"sessionId"`
	Code               string              `json:"code"`
	Status             model.SessionStatus `json:"status"`
	At                 time.Time           `json:"at"`
	ConsumableSubtotal decimal.Decimal     `json:"consumableSubtotal"`
	CurrentTotal       decimal.Decimal     `json:"currentTotal"`
	billing.Estimate
}
