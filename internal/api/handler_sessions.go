package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"venue-billing-backend/internal/engine"
	"venue-billing-backend/internal/model"
)

type startSessionRequest struct {
	TableID       int64  `json:"tableId" binding:"required"`
	ServiceTypeID int64  `json:"serviceTypeId" binding:"required"`
	CustomerID    *int64 `json:"customerId"`
	GuestName     string `json:"guestName"`
	GuestPhone    string `json:"guestPhone"`
	Notes         string `json:"notes"`
}

// StartSession handles POST /api/sessions.
func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	session, err := h.engine.StartSession(c.Request.Context(), engine.StartInput{
		TableID:       req.TableID,
		ServiceTypeID: req.ServiceTypeID,
		CustomerID:    req.CustomerID,
		GuestName:     req.GuestName,
		GuestPhone:    req.GuestPhone,
		Notes:         req.Notes,
		ActorID:       actorID(c),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

type listQuery struct {
	OrganizationID int64  `form:"organizationId" binding:"required"`
	Status         string `form:"status"`
	Page           int    `form:"page"`
	Limit          int    `form:"limit"`
}

func (q listQuery) filter() engine.ListFilter {
	return engine.ListFilter{
		OrganizationID: q.OrganizationID,
		Status:         q.Status,
		Page:           q.Page,
		Limit:          q.Limit,
	}
}

// ListSessions handles GET /api/sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	page, err := h.engine.ListSessions(c.Request.Context(), q.filter())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetSession handles GET /api/sessions/:id.
func (h *Handler) GetSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	session, err := h.engine.GetSession(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// PauseSession handles POST /api/sessions/:id/pause.
func (h *Handler) PauseSession(c *gin.Context) {
	h.transition(c, h.engine.PauseSession)
}

// ResumeSession handles POST /api/sessions/:id/resume.
func (h *Handler) ResumeSession(c *gin.Context) {
	h.transition(c, h.engine.ResumeSession)
}

// CancelSession handles POST /api/sessions/:id/cancel.
func (h *Handler) CancelSession(c *gin.Context) {
	h.transition(c, h.engine.CancelSession)
}

func (h *Handler) transition(c *gin.Context, op func(ctx context.Context, id int64) (model.Session, error)) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	session, err := op(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type closeSessionRequest struct {
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	Discount      decimal.Decimal     `json:"discount"`
	Settle        bool                `json:"settle"`
	SkipInvoice   bool                `json:"skipInvoice"`
}

// CloseSession handles POST /api/sessions/:id/close. The body is optional.
func (h *Handler) CloseSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req closeSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	result, err := h.engine.CloseSession(c.Request.Context(), engine.CloseInput{
		SessionID:     id,
		PaymentMethod: req.PaymentMethod,
		Discount:      req.Discount,
		Settle:        req.Settle,
		SkipInvoice:   req.SkipInvoice,
		ActorID:       actorID(c),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetEstimate handles GET /api/sessions/:id/estimate.
func (h *Handler) GetEstimate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	est, err := h.engine.GetLiveEstimate(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

type attachOrderRequest struct {
	ItemID   int64  `json:"itemId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	Notes    string `json:"notes"`
}

// AttachOrder handles POST /api/sessions/:id/orders.
func (h *Handler) AttachOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req attachOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.engine.AttachOrder(c.Request.Context(), engine.OrderInput{
		SessionID: id,
		ItemID:    req.ItemID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
		ActorID:   actorID(c),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListOrders handles GET /api/sessions/:id/orders.
func (h *Handler) ListOrders(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	orders, err := h.engine.ListOrders(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}
