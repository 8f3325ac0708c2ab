package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/billing"
	"venue-billing-backend/internal/model"
	"venue-billing-backend/internal/pricing"
	"venue-billing-backend/internal/sequence"
)

// Store defines the interface for all database operations.
type Store interface {
	// WithTx runs fn in a single transaction; any error rolls everything back.
	WithTx(ctx context.Context, fn func(Tx) error) error

	GetSession(ctx context.Context, id int64) (model.Session, error)
	GetTable(ctx context.Context, id int64) (model.Table, error)
	ListOrders(ctx context.Context, sessionID int64) ([]model.SessionOrder, error)
	GetInvoice(ctx context.Context, id int64) (model.Invoice, error)
	GetInvoiceBySession(ctx context.Context, sessionID int64) (model.Invoice, error)

	ListSessions(ctx context.Context, q SessionQuery) ([]model.Session, int64, error)
	ListInvoices(ctx context.Context, q InvoiceQuery) ([]model.Invoice, int64, error)

	DB() *gorm.DB
}

// Tx is the set of writes available inside a transaction. Lock* methods take
// a row lock that is held until the transaction ends.
type Tx interface {
	LockTable(id int64) (model.Table, error)
	SetTableStatus(id int64, status model.TableStatus) error
	ActivePricing(tableID, serviceTypeID int64) (billing.Policy, error)

	LockSession(id int64) (model.Session, error)
	CreateSession(s *model.Session) error
	UpdateSession(id int64, fields map[string]any) error
	AddConsumableAmount(sessionID int64, amount decimal.Decimal) error

	LockItem(id int64) (model.Item, error)
	DecrementStock(itemID int64, quantity int) error
	CreateOrder(o *model.SessionOrder) error
	ListOrders(sessionID int64) ([]model.SessionOrder, error)

	CreateInvoice(inv *model.Invoice) error
	LockInvoice(id int64) (model.Invoice, error)
	UpdateInvoice(id int64, fields map[string]any) error

	NextSequence(ns sequence.Namespace, scope string) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{tx: tx})
	})
}

func (s *gormStore) GetSession(ctx context.Context, id int64) (model.Session, error) {
	var session model.Session
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return session, notFound(err, "session", id)
	}
	return session, nil
}

func (s *gormStore) GetTable(ctx context.Context, id int64) (model.Table, error) {
	var table model.Table
	if err := s.db.WithContext(ctx).First(&table, id).Error; err != nil {
		return table, notFound(err, "table", id)
	}
	return table, nil
}

func (s *gormStore) ListOrders(ctx context.Context, sessionID int64) ([]model.SessionOrder, error) {
	return listOrders(s.db.WithContext(ctx), sessionID)
}

func (s *gormStore) GetInvoice(ctx context.Context, id int64) (model.Invoice, error) {
	var invoice model.Invoice
	err := s.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&invoice, id).Error
	if err != nil {
		return invoice, notFound(err, "invoice", id)
	}
	return invoice, nil
}

func (s *gormStore) GetInvoiceBySession(ctx context.Context, sessionID int64) (model.Invoice, error) {
	var invoice model.Invoice
	err := s.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Where("session_id = ?", sessionID).First(&invoice).Error
	if err != nil {
		return invoice, notFound(err, "invoice for session", sessionID)
	}
	return invoice, nil
}

// SessionQuery selects one page of an organization's sessions. An empty
// Status matches every status.
type SessionQuery struct {
	OrganizationID int64
	Status         model.SessionStatus
	Page           int
	Limit          int
}

// InvoiceQuery selects one page of an organization's invoices.
type InvoiceQuery struct {
	OrganizationID int64
	PaymentStatus  model.PaymentStatus
	Page           int
	Limit          int
}

func (s *gormStore) ListSessions(ctx context.Context, q SessionQuery) ([]model.Session, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Session{}).Where("organization_id = ?", q.OrganizationID)
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions of organization %d: %w", q.OrganizationID, err)
	}

	var sessions []model.Session
	err := db.Order("start_time DESC, id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions of organization %d: %w", q.OrganizationID, err)
	}
	return sessions, total, nil
}

func (s *gormStore) ListInvoices(ctx context.Context, q InvoiceQuery) ([]model.Invoice, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Invoice{}).Where("organization_id = ?", q.OrganizationID)
	if q.PaymentStatus != "" {
		db = db.Where("payment_status = ?", q.PaymentStatus)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices of organization %d: %w", q.OrganizationID, err)
	}

	var invoices []model.Invoice
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).
		Order("created_at DESC, id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices of organization %d: %w", q.OrganizationID, err)
	}
	return invoices, total, nil
}

// gormTx implements Tx on top of an open GORM transaction.
type gormTx struct {
	tx *gorm.DB
}

func (t *gormTx) locking() *gorm.DB {
	return t.tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *gormTx) LockTable(id int64) (model.Table, error) {
	var table model.Table
	if err := t.locking().First(&table, id).Error; err != nil {
		return table, notFound(err, "table", id)
	}
	return table, nil
}

func (t *gormTx) SetTableStatus(id int64, status model.TableStatus) error {
	if err := t.tx.Model(&model.Table{ID: id}).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to set table %d status to %s: %w", id, status, err)
	}
	return nil
}

// ActivePricing reads the policy under the same transaction as the table
// lock, so a start never uses a policy deactivated before it committed.
func (t *gormTx) ActivePricing(tableID, serviceTypeID int64) (billing.Policy, error) {
	return pricing.LoadActive(t.tx, tableID, serviceTypeID)
}

func (t *gormTx) LockSession(id int64) (model.Session, error) {
	var session model.Session
	if err := t.locking().First(&session, id).Error; err != nil {
		return session, notFound(err, "session", id)
	}
	return session, nil
}

func (t *gormTx) CreateSession(s *model.Session) error {
	if err := t.tx.Create(s).Error; err != nil {
		return fmt.Errorf("failed to create session %s: %w", s.Code, err)
	}
	return nil
}

func (t *gormTx) UpdateSession(id int64, fields map[string]any) error {
	if err := t.tx.Model(&model.Session{ID: id}).Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update session %d: %w", id, err)
	}
	return nil
}

// AddConsumableAmount increments the running totals in the store so that
// concurrent writers never overwrite each other.
func (t *gormTx) AddConsumableAmount(sessionID int64, amount decimal.Decimal) error {
	res := t.tx.Model(&model.Session{ID: sessionID}).Updates(map[string]any{
		"consumable_subtotal": gorm.Expr("consumable_subtotal + ?", amount),
		"total_amount":        gorm.Expr("total_amount + ?", amount),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to add %s to session %d: %w", amount, sessionID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: session %d", apperr.ErrNotFound, sessionID)
	}
	return nil
}

func (t *gormTx) LockItem(id int64) (model.Item, error) {
	var item model.Item
	if err := t.locking().First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return item, fmt.Errorf("%w: item %d not found", apperr.ErrItemUnavailable, id)
		}
		return item, fmt.Errorf("failed to load item %d: %w", id, err)
	}
	return item, nil
}

// DecrementStock removes quantity from stock only if enough is left.
func (t *gormTx) DecrementStock(itemID int64, quantity int) error {
	res := t.tx.Model(&model.Item{}).
		Where("id = ? AND stock_quantity >= ?", itemID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock of item %d: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: item %d", apperr.ErrInsufficientStock, itemID)
	}
	return nil
}

func (t *gormTx) CreateOrder(o *model.SessionOrder) error {
	if err := t.tx.Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order for session %d: %w", o.SessionID, err)
	}
	return nil
}

func (t *gormTx) ListOrders(sessionID int64) ([]model.SessionOrder, error) {
	return listOrders(t.tx, sessionID)
}

func (t *gormTx) CreateInvoice(inv *model.Invoice) error {
	if err := t.tx.Create(inv).Error; err != nil {
		return fmt.Errorf("failed to create invoice %s: %w", inv.Number, err)
	}
	return nil
}

func (t *gormTx) LockInvoice(id int64) (model.Invoice, error) {
	var invoice model.Invoice
	if err := t.locking().First(&invoice, id).Error; err != nil {
		return invoice, notFound(err, "invoice", id)
	}
	return invoice, nil
}

func (t *gormTx) UpdateInvoice(id int64, fields map[string]any) error {
	if err := t.tx.Model(&model.Invoice{ID: id}).Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update invoice %d: %w", id, err)
	}
	return nil
}

func (t *gormTx) NextSequence(ns sequence.Namespace, scope string) (int64, error) {
	return sequence.Next(t.tx, ns, scope)
}

func listOrders(db *gorm.DB, sessionID int64) ([]model.SessionOrder, error) {
	var orders []model.SessionOrder
	if err := db.Where("session_id = ?", sessionID).Order("ordered_at, id").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders of session %d: %w", sessionID, err)
	}
	return orders, nil
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", apperr.ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", what, id, err)
}
