package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/model"
	"venue-billing-backend/internal/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PriceQuote is the pricing a new session on a table would currently get.
// Quotes may be served from cache and are not binding.
type PriceQuote struct {
	TableID       int64             `json:"tableId"`
	TableLabel    string            `json:"tableLabel"`
	TableStatus   model.TableStatus `json:"tableStatus"`
	ServiceTypeID int64             `json:"serviceTypeId"`
	Kind          model.PricingKind `json:"pricingType"`
	FixedAmount   decimal.Decimal   `json:"fixedAmount"`
	RatePerMinute decimal.Decimal   `json:"ratePerMinute"`
	CapMinutes    int               `json:"capMinutes,omitempty"`
	UnlimitedTime bool              `json:"unlimitedTime"`
}

// QuotePricing looks up the pricing of a table for display.
func (e *Engine) QuotePricing(ctx context.Context, tableID, serviceTypeID int64) (PriceQuote, error) {
	if tableID <= 0 || serviceTypeID <= 0 {
		return PriceQuote{}, fmt.Errorf("%w: table id and service type id are required", apperr.ErrValidation)
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	table, err := e.store.GetTable(ctx, tableID)
	if err != nil {
		return PriceQuote{}, apperr.Normalize(err)
	}
	p, err := e.pricing.Resolve(ctx, tableID, serviceTypeID)
	if err != nil {
		return PriceQuote{}, apperr.Normalize(err)
	}
	return PriceQuote{
		TableID:       table.ID,
		TableLabel:    table.Label,
		TableStatus:   table.Status,
		ServiceTypeID: serviceTypeID,
		Kind:          p.Kind,
		FixedAmount:   p.FixedAmount,
		RatePerMinute: p.RatePerMinute,
		CapMinutes:    p.CapMinutes,
		UnlimitedTime: p.UnlimitedTime,
	}, nil
}

// ListFilter selects one page of an organization's sessions or invoices.
// Status is a session status or an invoice payment status; empty matches all.
type ListFilter struct {
	OrganizationID int64
	Status         string
	Page           int
	Limit          int
}

func (f *ListFilter) normalize() error {
	if f.OrganizationID <= 0 {
		return fmt.Errorf("%w: organization id is required", apperr.ErrValidation)
	}
	if f.Page < 0 || f.Limit < 0 {
		return fmt.Errorf("%w: page and limit must not be negative", apperr.ErrValidation)
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return nil
}

// Pagination describes the page a list response holds.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

func paginate(total int64, f ListFilter) Pagination {
	limit := int64(f.Limit)
	return Pagination{
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: (total + limit - 1) / limit,
	}
}

// SessionPage is one page of sessions, newest first.
type SessionPage struct {
	Sessions   []model.Session `json:"sessions"`
	Pagination Pagination      `json:"pagination"`
}

// InvoicePage is one page of invoices, newest first.
type InvoicePage struct {
	Invoices   []model.Invoice `json:"invoices"`
	Pagination Pagination      `json:"pagination"`
}

// ListSessions returns sessions of an organization ordered by start time.
func (e *Engine) ListSessions(ctx context.Context, f ListFilter) (SessionPage, error) {
	if err := f.normalize(); err != nil {
		return SessionPage{}, err
	}
	status := model.SessionStatus(f.Status)
	switch status {
	case "", model.SessionActive, model.SessionPaused, model.SessionCompleted, model.SessionCancelled:
	default:
		return SessionPage{}, fmt.Errorf("%w: unknown session status %q", apperr.ErrValidation, f.Status)
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	sessions, total, err := e.store.ListSessions(ctx, store.SessionQuery{
		OrganizationID: f.OrganizationID,
		Status:         status,
		Page:           f.Page,
		Limit:          f.Limit,
	})
	if err != nil {
		return SessionPage{}, apperr.Normalize(err)
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return SessionPage{Sessions: sessions, Pagination: paginate(total, f)}, nil
}

// ListInvoices returns invoices of an organization ordered by creation time.
func (e *Engine) ListInvoices(ctx context.Context, f ListFilter) (InvoicePage, error) {
	if err := f.normalize(); err != nil {
		return InvoicePage{}, err
	}
	status := model.PaymentStatus(f.Status)
	switch status {
	case "", model.PaymentPending, model.PaymentPaid, model.PaymentPartial:
	default:
		return InvoicePage{}, fmt.Errorf("%w: unknown payment status %q", apperr.ErrValidation, f.Status)
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	invoices, total, err := e.store.ListInvoices(ctx, store.InvoiceQuery{
		OrganizationID: f.OrganizationID,
		PaymentStatus:  status,
		Page:           f.Page,
		Limit:          f.Limit,
	})
	if err != nil {
		return InvoicePage{}, apperr.Normalize(err)
	}
	if invoices == nil {
		invoices = []model.Invoice{}
	}
	return InvoicePage{Invoices: invoices, Pagination: paginate(total, f)}, nil
}
