package handlers

import (
	"context"
	"strconv"

	"github.com/crewdesk/bridge-api/internal/middleware"
	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type UsageHandler struct {
	usageService UsageServiceInterface
}

func NewUsageHandler(usageService UsageServiceInterface) *UsageHandler {
	return &UsageHandler{usageService: usageService}
}

func (h *UsageHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := h.usageService.ListRecent(context.Background(), userID, limit)
	if err != nil {
		c.InternalServerError("failed to list usage records")
		return
	}

	if records == nil {
		records = []models.UsageRecord{}
	}

	_ = c.JSON(200, records)
}
