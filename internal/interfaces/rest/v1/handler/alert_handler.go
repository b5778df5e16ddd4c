package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-bus-tracking/internal/infrastructure/logger"
)

type AlertRequest struct {
	Level   string         `json:"level" binding:"omitempty,oneof=info warning critical"`
	Message string         `json:"message" binding:"required"`
	Details map[string]any `json:"details"`
}

type AlertHandler struct {
	notifier Notifier
	logger   logger.Logger
}

func NewAlertHandler(notifier Notifier, logger logger.Logger) *AlertHandler {
	return &AlertHandler{
		notifier: notifier,
		logger:   logger.WithField("handler", "alert"),
	}
}

// SendAlert pushes a system alert to every open connection.
func (h *AlertHandler) SendAlert(c *gin.Context) {
	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.Level == "" {
		req.Level = "info"
	}

	payload := map[string]any{
		"level":   req.Level,
		"message": req.Message,
	}
	if len(req.Details) > 0 {
		payload["details"] = req.Details
	}

	h.notifier.NotifySystemAlert(payload)
	h.logger.Infof("System alert broadcast (level %s)", req.Level)

	respondOK(c, http.StatusAccepted, payload, "Alert broadcast")
}
