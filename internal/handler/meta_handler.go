package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

const healthTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type MetaHandler struct {
	db Pinger
}

func NewMetaHandler(db Pinger) *MetaHandler {
	return &MetaHandler{db: db}
}

func (h *MetaHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *MetaHandler) Statuses(c *gin.Context) {
	c.JSON(http.StatusOK, model.Statuses)
}

func (h *MetaHandler) Roles(c *gin.Context) {
	c.JSON(http.StatusOK, model.Roles)
}
