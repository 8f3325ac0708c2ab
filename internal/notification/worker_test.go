package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"venue-billing-backend/internal/engine"
	"venue-billing-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func subscriptionRows(subs ...model.PushSubscription) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "organization_id", "created_at"})
	for _, s := range subs {
		rows.AddRow(s.Endpoint, s.P256DH, s.Auth, s.OrganizationID, time.Now())
	}
	return rows
}

const selectSubscriptions = `SELECT \* FROM "push_subscriptions" WHERE organization_id = \$1`

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, 1, db, &webpush.Options{}, zap.NewNop())

	assert.True(t, wp.Dispatch(Notice{SessionCode: "SES-1"}))
	assert.False(t, wp.Dispatch(Notice{SessionCode: "SES-2"}), "full queue drops instead of blocking")

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "SES-1", job.SessionCode)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_SessionClosed(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, 4, db, &webpush.Options{}, zap.NewNop())

	wp.SessionClosed(engine.CloseResult{
		Session: model.Session{Code: "SES-7-20240513-004", OrganizationID: 7, TotalAmount: decimal.RequireFromString("125")},
		Invoice: &model.Invoice{Number: "INV-7-202405-0009", TotalAmount: decimal.RequireFromString("147.50")},
	}, "T2")
	wp.SessionClosed(engine.CloseResult{
		Session: model.Session{Code: "SES-7-20240513-005", OrganizationID: 7, TotalAmount: decimal.RequireFromString("40")},
	}, "T3")

	first := <-wp.jobs
	assert.Equal(t, int64(7), first.OrganizationID)
	assert.Equal(t, "INV-7-202405-0009", first.InvoiceNumber)
	assert.Equal(t, "147.50", first.Total.StringFixed(2))

	second := <-wp.jobs
	assert.Empty(t, second.InvoiceNumber)
	assert.Equal(t, "40.00", second.Total.StringFixed(2))

	body, err := second.payload()
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Table T3 is free","body":"Session SES-7-20240513-005 closed, total 40.00"}`, string(body))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, 4, gormDB, &webpush.Options{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	notice := Notice{
		OrganizationID: 7,
		SessionCode:    "SES-7-20240513-001",
		TableLabel:     "T1",
		InvoiceNumber:  "INV-7-202405-0001",
		Total:          decimal.RequireFromString("147.5"),
	}

	t.Run("sends notification for one subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "test_p256dh", sub.Keys.P256dh)
				assert.JSONEq(t, `{"title":"Table T1 is free","body":"Invoice INV-7-202405-0001 issued, total 147.50"}`, string(payload))
				return response(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(selectSubscriptions).
			WithArgs(int64(7)).
			WillReturnRows(subscriptionRows(model.PushSubscription{
				Endpoint: "https://example.com/push", P256DH: "test_p256dh", Auth: "test_auth", OrganizationID: 7,
			}))

		wp.Dispatch(notice)
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		done := make(chan struct{})
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(selectSubscriptions).
			WithArgs(int64(7)).
			WillReturnRows(subscriptionRows(model.PushSubscription{
				Endpoint: "https://example.com/expired", P256DH: "k", Auth: "a", OrganizationID: 7,
			}))
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch(notice)

		go func() {
			defer close(done)
			for mock.ExpectationsWereMet() != nil {
				time.Sleep(10 * time.Millisecond)
			}
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("expired subscription was not deleted")
		}
	})

	t.Run("keeps going when a send fails", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)
		var mu sync.Mutex
		var endpoints []string

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				mu.Lock()
				endpoints = append(endpoints, sub.Endpoint)
				mu.Unlock()
				if sub.Endpoint == "https://example.com/a" {
					return nil, errors.New("connection refused")
				}
				return response(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(selectSubscriptions).
			WithArgs(int64(7)).
			WillReturnRows(subscriptionRows(
				model.PushSubscription{Endpoint: "https://example.com/a", P256DH: "k", Auth: "a", OrganizationID: 7},
				model.PushSubscription{Endpoint: "https://example.com/b", P256DH: "k", Auth: "a", OrganizationID: 7},
			))

		wp.Dispatch(notice)
		wg.Wait()
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, endpoints)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
