package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// QuotePricing handles GET /api/tables/:id/pricing?serviceTypeId=.
func (h *Handler) QuotePricing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	serviceTypeID, err := strconv.ParseInt(c.Query("serviceTypeId"), 10, 64)
	if err != nil || serviceTypeID <= 0 {
		badRequest(c, "serviceTypeId must be a positive integer")
		return
	}
	quote, err := h.engine.QuotePricing(c.Request.Context(), id, serviceTypeID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
