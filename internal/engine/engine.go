// Package engine drives the lifecycle of table sessions: start, pause, resume,
// consumable orders, live estimates, close with invoicing, cancel and payment.
//
// Every mutation of a session runs under a per-session lock and a single store
// transaction, so a session is never observed half-updated.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/pricing"
	"venue-billing-backend/internal/store"
)

// ClosingNotifier is told about sessions that closed successfully. It must not
// block.
type ClosingNotifier interface {
	SessionClosed(result CloseResult, tableLabel string)
}

// Config holds the billing settings the engine applies.
type Config struct {
	TaxRate           decimal.Decimal
	Location          *time.Location
	SessionCodePrefix string
	InvoicePrefix     string
	// Timeout bounds each operation, including waiting for locks.
	Timeout time.Duration
}

// Engine implements the session operations.
type Engine struct {
	store    store.Store
	pricing  pricing.Resolver // quotes
	notifier ClosingNotifier
	locks    *keyedMutex
	now      func() time.Time
	cfg      Config
	log      *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNotifier registers n for closing notices.
func WithNotifier(n ClosingNotifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New creates an Engine.
func New(st store.Store, resolver pricing.Resolver, cfg Config, log *zap.Logger, opts ...Option) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SessionCodePrefix == "" {
		cfg.SessionCodePrefix = "SES"
	}
	if cfg.InvoicePrefix == "" {
		cfg.InvoicePrefix = "INV"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store:   st,
		pricing: resolver,
		locks:   newKeyedMutex(),
		now:     time.Now,
		cfg:     cfg,
		log:     log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.Timeout)
}

// locked runs fn in a transaction while holding the in-process lock for key.
func (e *Engine) locked(ctx context.Context, key string, fn func(store.Tx) error) error {
	unlock, err := e.locks.Lock(ctx, key)
	if err != nil {
		return apperr.Normalize(err)
	}
	defer unlock()
	return apperr.Normalize(e.store.WithTx(ctx, fn))
}

func sessionKey(id int64) string { return fmt.Sprintf("session:%d", id) }

func tableKey(id int64) string { return fmt.Sprintf("table:%d", id) }
