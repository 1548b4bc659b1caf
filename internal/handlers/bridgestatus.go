package handlers

import (
	"github.com/crewdesk/bridge-api/internal/bridge"
	"github.com/crewdesk/bridge-api/internal/middleware"
	"github.com/crewdesk/bridge-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type BridgeStatusHandler struct {
	bridgeURL string
}

func NewBridgeStatusHandler(bridgeURL string) *BridgeStatusHandler {
	return &BridgeStatusHandler{bridgeURL: bridgeURL}
}

// Status probes the configured bridge daemon and reports reachability.
func (h *BridgeStatusHandler) Status(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	reachable := bridge.DetectBridge(c.Request.Context(), h.bridgeURL)

	_ = c.JSON(200, dto.BridgeStatusResponse{
		URL:       h.bridgeURL,
		Reachable: reachable,
	})
}
