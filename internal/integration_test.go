package internal

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"venue-billing-backend/internal/engine"
	"venue-billing-backend/internal/model"
	"venue-billing-backend/internal/notification"
	"venue-billing-backend/internal/pricing"
	"venue-billing-backend/internal/store"
	"venue-billing-backend/internal/testfixtures"
)

// browserKeys returns the p256dh and auth values a browser would register.
func browserKeys(t *testing.T) (string, string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString(key.PublicKey().Bytes()), enc.EncodeToString(secret)
}

// TestClosingNoticeLifecycle runs a session from start to close and verifies
// the closing notice reaches the push service, and that an expired
// subscription is dropped on the next close.
func TestClosingNoticeLifecycle(t *testing.T) {
	// --- Test Setup ---
	db := testfixtures.OpenSQLite(t)
	seed := testfixtures.NewSeeder(t, db)
	clock := testfixtures.NewClock(time.Time{})

	pushes := make(chan *http.Request, 4)
	status := http.StatusCreated
	pushService := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		pushes <- r
	}))
	defer pushService.Close()

	vapidPrivate, vapidPublic, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	p256dh, auth := browserKeys(t)
	require.NoError(t, db.Create(&model.PushSubscription{
		Endpoint:       pushService.URL + "/staff-1",
		P256DH:         p256dh,
		Auth:           auth,
		OrganizationID: 1,
	}).Error)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool := notification.NewWorkerPool(1, 8, db, &webpush.Options{
		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
		Subscriber:      "ops@example.com",
		TTL:             60,
	}, zap.NewNop())
	pool.Start(ctx)

	eng := engine.New(store.NewGormStore(db), pricing.NewCached(pricing.NewGormResolver(db), time.Minute), engine.Config{
		TaxRate: decimal.RequireFromString("0.18"),
	}, zap.NewNop(), engine.WithClock(clock.Now), engine.WithNotifier(pool))

	table := seed.Table(1, "T1")
	seed.FixedPricing(table.ID, 10, "100")

	// --- Step 1: close a session, push accepted ---
	s, err := eng.StartSession(ctx, engine.StartInput{TableID: table.ID, ServiceTypeID: 10})
	require.NoError(t, err)
	clock.Advance(45 * time.Minute)
	res, err := eng.CloseSession(ctx, engine.CloseInput{SessionID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, "118.00", res.Invoice.TotalAmount.StringFixed(2))

	select {
	case r := <-pushes:
		assert.Equal(t, "/staff-1", r.URL.Path)
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		assert.Contains(t, r.Header.Get("Authorization"), "vapid")
	case <-time.After(5 * time.Second):
		t.Fatal("closing notice was not pushed")
	}

	// --- Step 2: the push service reports the subscription gone ---
	status = http.StatusGone
	s, err = eng.StartSession(ctx, engine.StartInput{TableID: table.ID, ServiceTypeID: 10})
	require.NoError(t, err)
	_, err = eng.CloseSession(ctx, engine.CloseInput{SessionID: s.ID, SkipInvoice: true})
	require.NoError(t, err)

	select {
	case <-pushes:
	case <-time.After(5 * time.Second):
		t.Fatal("second closing notice was not pushed")
	}
	assert.Eventually(t, func() bool {
		var n int64
		db.Model(&model.PushSubscription{}).Count(&n)
		return n == 0
	}, 5*time.Second, 20*time.Millisecond)
}
