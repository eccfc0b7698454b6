package http

import (
	"errors"
	"net/http"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/services"
	"vigilcam/internal/infrastructure/signal"

	"github.com/gin-gonic/gin"
)

// StreamHandler exposes the connection supervisor over HTTP: status polling,
// manual retry, external-player handoff and the live status WebSocket.
type StreamHandler struct {
	supervisor   *services.Supervisor
	statusServer *signal.StatusServer
}

func NewStreamHandler(supervisor *services.Supervisor, statusServer *signal.StatusServer) *StreamHandler {
	return &StreamHandler{
		supervisor:   supervisor,
		statusServer: statusServer,
	}
}

func (h *StreamHandler) SetupRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := router.Group("/api/v1/stream")
	api.Use(authMiddleware)
	{
		api.GET("/status", h.GetStatus)
		api.POST("/retry", h.Retry)
		api.GET("/external-url", h.GetExternalURL)
	}

	// The in-vehicle display subscribes here before it can log in.
	router.GET("/ws/status", h.StatusWebSocket)
}

func (h *StreamHandler) GetStatus(c *gin.Context) {
	snapshot := h.supervisor.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":  snapshot,
		"viewers": h.statusServer.ClientCount(),
	})
}

func (h *StreamHandler) Retry(c *gin.Context) {
	if err := h.supervisor.Retry(); err != nil {
		if errors.Is(err, domain.ErrRetryUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": h.supervisor.Status(),
	})
}

func (h *StreamHandler) GetExternalURL(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"url": h.supervisor.OpenExternally(),
	})
}

func (h *StreamHandler) StatusWebSocket(c *gin.Context) {
	h.statusServer.HandleWebSocket(c.Writer, c.Request)
}
