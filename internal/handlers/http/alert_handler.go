package http

import (
	"errors"
	"net/http"
	"strconv"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/services"
	"vigilcam/pkg/logger"
	"vigilcam/pkg/validation"

	"github.com/gin-gonic/gin"
)

const defaultEventListLimit = 50

// AlertHandler ingests device alerts and serves the event feed.
type AlertHandler struct {
	alertService *services.AlertService
}

func NewAlertHandler(alertService *services.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// SetupRoutes registers the alert routes. The ingestion route authenticates
// devices by shared secret; the feed route is for logged-in viewers.
func (h *AlertHandler) SetupRoutes(router *gin.Engine, deviceSecretMiddleware, authMiddleware gin.HandlerFunc) {
	router.POST("/api/v1/device/alert", deviceSecretMiddleware, h.IngestAlert)
	router.GET("/api/v1/events", authMiddleware, h.ListEvents)
}

type DeviceAlertRequest struct {
	DeviceID     string `json:"device_id" binding:"required,max=100"`
	Motion       bool   `json:"motion"`
	UltraClose   bool   `json:"ultra_close"`
	AlertType    string `json:"alert_type,omitempty"`
	Message      string `json:"message,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

func (h *AlertHandler) IngestAlert(c *gin.Context) {
	var req DeviceAlertRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateDeviceID(req.DeviceID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateAlertMessage(req.Message); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := logger.ContextWithDeviceID(c.Request.Context(), req.DeviceID)
	event, err := h.alertService.Ingest(ctx, domain.DeviceAlert{
		DeviceID:     domain.DeviceID(req.DeviceID),
		Motion:       req.Motion,
		UltraClose:   req.UltraClose,
		AlertType:    req.AlertType,
		Message:      req.Message,
		ThumbnailURL: req.ThumbnailURL,
	})
	if err != nil {
		// Filtered alerts are acknowledged so devices do not retransmit.
		if errors.Is(err, domain.ErrAlertSuppressed) {
			c.JSON(http.StatusOK, gin.H{"status": "suppressed"})
			return
		}
		if errors.Is(err, domain.ErrDuplicateAlert) {
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

func (h *AlertHandler) ListEvents(c *gin.Context) {
	limit := defaultEventListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
			return
		}
		limit = parsed
	}

	events, err := h.alertService.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}
