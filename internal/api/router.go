package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"venue-billing-backend/config"
	"venue-billing-backend/internal/engine"
	"venue-billing-backend/internal/mw"
	"venue-billing-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(e *engine.Engine, s store.Store, webpushOptions *webpush.Options, cfg config.ServerConfig, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logger(log))

	handler := NewHandler(e, s, webpushOptions, log)

	r.GET("/api/vapid_public_key", handler.GetVAPIDPublicKey)

	// API group
	api := r.Group("/api")
	api.Use(mw.Identify(), mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))
	{
		api.GET("/tables/:id/pricing", handler.QuotePricing)

		sessions := api.Group("/sessions")
		sessions.GET("", handler.ListSessions)
		sessions.GET("/:id", handler.GetSession)
		sessions.GET("/:id/estimate", handler.GetEstimate)
		sessions.GET("/:id/orders", handler.ListOrders)

		manage := mw.Require(mw.CapSessions)
		sessions.POST("", manage, handler.StartSession)
		sessions.POST("/:id/pause", manage, handler.PauseSession)
		sessions.POST("/:id/resume", manage, handler.ResumeSession)
		sessions.POST("/:id/cancel", manage, handler.CancelSession)
		sessions.POST("/:id/orders", mw.Require(mw.CapConsumables), handler.AttachOrder)

		billing := mw.Require(mw.CapBilling)
		sessions.POST("/:id/close", manage, handler.CloseSession)
		sessions.GET("/:id/invoice", billing, handler.GetSessionInvoice)
		api.GET("/invoices", billing, handler.ListInvoices)
		api.GET("/invoices/:id", billing, handler.GetInvoice)
		api.POST("/invoices/:id/payments", billing, handler.RecordPayment)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}
