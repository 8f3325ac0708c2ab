package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"venue-billing-backend/internal/engine"
	"venue-billing-backend/internal/model"
)

// ListInvoices handles GET /api/invoices. The status parameter filters by
// payment status.
func (h *Handler) ListInvoices(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	if ps := c.Query("paymentStatus"); ps != "" {
		q.Status = ps
	}
	page, err := h.engine.ListInvoices(c.Request.Context(), q.filter())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetInvoice handles GET /api/invoices/:id.
func (h *Handler) GetInvoice(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	inv, err := h.engine.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// GetSessionInvoice handles GET /api/sessions/:id/invoice.
func (h *Handler) GetSessionInvoice(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	inv, err := h.engine.GetSessionInvoice(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

type recordPaymentRequest struct {
	Status        model.PaymentStatus `json:"status" binding:"required"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
}

// RecordPayment handles POST /api/invoices/:id/payments.
func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	inv, err := h.engine.RecordPayment(c.Request.Context(), engine.PaymentInput{
		InvoiceID: id,
		Status:    req.Status,
		Method:    req.PaymentMethod,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}
