package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-billing-backend/internal/engine"
	"venue-billing-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Notice announces a closed session to the staff of its organization.
type Notice struct {
	OrganizationID int64
	SessionCode    string
	TableLabel     string
	InvoiceNumber  string
	Total          decimal.Decimal
}

type payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (n Notice) payload() ([]byte, error) {
	body := fmt.Sprintf("Session %s closed, total %s", n.SessionCode, n.Total.StringFixed(2))
	if n.InvoiceNumber != "" {
		body = fmt.Sprintf("Invoice %s issued, total %s", n.InvoiceNumber, n.Total.StringFixed(2))
	}
	return json.Marshal(payload{
		Title: fmt.Sprintf("Table %s is free", n.TableLabel),
		Body:  body,
	})
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Notice
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool with room for queueSize pending
// notices.
func NewWorkerPool(size, queueSize int, db *gorm.DB, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = size
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Notice, queueSize),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.log.With(zap.Int("worker", id))
	log.Debug("worker started")
	for {
		select {
		case notice := <-wp.jobs:
			log.Debug("processing notice", zap.String("session", notice.SessionCode))
			wp.sendNotice(ctx, notice)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues a notice. It never blocks; when the queue is full the
// notice is dropped.
func (wp *WorkerPool) Dispatch(n Notice) bool {
	select {
	case wp.jobs <- n:
		return true
	default:
		wp.log.Warn("notification queue full, dropping notice", zap.String("session", n.SessionCode))
		return false
	}
}

// SessionClosed queues a notice for a session that just closed.
func (wp *WorkerPool) SessionClosed(result engine.CloseResult, tableLabel string) {
	n := Notice{
		OrganizationID: result.Session.OrganizationID,
		SessionCode:    result.Session.Code,
		TableLabel:     tableLabel,
		Total:          result.Session.TotalAmount,
	}
	if result.Invoice != nil {
		n.InvoiceNumber = result.Invoice.Number
		n.Total = result.Invoice.TotalAmount
	}
	wp.Dispatch(n)
}

// sendNotice fans a notice out to every subscription of its organization.
func (wp *WorkerPool) sendNotice(ctx context.Context, n Notice) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).
		Where("organization_id = ?", n.OrganizationID).
		Find(&subscriptions).Error; err != nil {
		wp.log.Error("failed to fetch subscriptions",
			zap.Int64("organization_id", n.OrganizationID),
			zap.Error(err),
		)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	body, err := n.payload()
	if err != nil {
		wp.log.Error("failed to encode notice", zap.Error(err))
		return
	}

	wp.log.Info("sending closing notices",
		zap.Int("count", len(subscriptions)),
		zap.String("session", n.SessionCode),
	)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, body)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
