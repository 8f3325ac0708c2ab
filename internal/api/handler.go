package api

import (
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"venue-billing-backend/internal/apperr"
	"venue-billing-backend/internal/engine"
	"venue-billing-backend/internal/mw"
	"venue-billing-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine  *engine.Engine
	store   store.Store
	webpush *webpush.Options
	log     *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(e *engine.Engine, s store.Store, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		engine:  e,
		store:   s,
		webpush: webpushOptions,
		log:     log,
	}
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:    http.StatusBadRequest,
	apperr.KindNotFound:      http.StatusNotFound,
	apperr.KindConflict:      http.StatusConflict,
	apperr.KindExhausted:     http.StatusConflict,
	apperr.KindConfiguration: http.StatusUnprocessableEntity,
	apperr.KindUnavailable:   http.StatusServiceUnavailable,
}

// writeError maps err onto a status and the {"error","code"} body. Errors
// without a domain kind are reported as unavailable without their details.
func (h *Handler) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	domain, ok := apperr.As(err)
	if !ok {
		h.log.Error("request failed",
			zap.String("request_id", mw.RequestIDFrom(c)),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": apperr.ErrUnavailable.Message,
			"code":  apperr.ErrUnavailable.Code,
		})
		return
	}
	c.AbortWithStatusJSON(kindStatus[domain.Kind], gin.H{"error": err.Error(), "code": domain.Code})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": apperr.ErrValidation.Code})
}

// idParam parses a positive path id and answers 400 otherwise.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func actorID(c *gin.Context) int64 {
	actor, _ := mw.ActorFrom(c)
	return actor.ID
}
