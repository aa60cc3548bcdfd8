package http

import (
	"context"
	"net/http"
	"time"

	"slack-connect/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type IHealthHandler interface {
	Healthz(ctx *gin.Context)
}

type healthHandler struct {
	db Pinger
}

// NewHealthHandler reports liveness. db may be nil for the in-memory store.
func NewHealthHandler(db Pinger) IHealthHandler {
	return &healthHandler{db: db}
}

func (h *healthHandler) Healthz(ctx *gin.Context) {
	if h.db == nil {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "database": "memory"})
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(pingCtx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Database ping failed")
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}
