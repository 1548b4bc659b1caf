package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/crewdesk/bridge-api/internal/events"
	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/crewdesk/bridge-api/internal/tools"
	"github.com/m1z23r/drift/pkg/drift"
)

type ToolsHandler struct {
	apiKeyService APIKeyServiceInterface
	userService   UserServiceInterface
	usageService  UsageServiceInterface
	executor      tools.Executor
	hub           *events.Hub
}

func NewToolsHandler(apiKeyService APIKeyServiceInterface, userService UserServiceInterface, usageService UsageServiceInterface, executor tools.Executor, hub *events.Hub) *ToolsHandler {
	return &ToolsHandler{
		apiKeyService: apiKeyService,
		userService:   userService,
		usageService:  usageService,
		executor:      executor,
		hub:           hub,
	}
}

// Execute is the tool gateway: bearer key auth, rate limiting, then
// dispatch to the executor. A well-formed authenticated request always gets
// a 200; tool-level failure travels inside the JSON payload.
func (h *ToolsHandler) Execute(c *drift.Context) {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.Unauthorized("missing or malformed authorization")
		return
	}

	ctx := context.Background()

	info, err := h.apiKeyService.Validate(ctx, parts[1])
	if err != nil {
		c.Unauthorized(err.Error())
		return
	}

	allowed, err := h.apiKeyService.CheckRateLimit(ctx, info.KeyID)
	if err != nil {
		c.InternalServerError("failed to check rate limit")
		return
	}
	if !allowed {
		_ = c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	var body struct {
		Tool any `json:"tool"`
		Args any `json:"args"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.BadRequest("invalid JSON body")
		return
	}

	toolName, ok := body.Tool.(string)
	if !ok || strings.TrimSpace(toolName) == "" {
		c.BadRequest("tool must be a non-empty string")
		return
	}
	args, ok := body.Args.(map[string]any)
	if !ok || args == nil {
		c.BadRequest("args must be an object")
		return
	}

	role := h.userService.LookupRole(ctx, info.OwnerID)

	start := time.Now()
	result := h.executor.Execute(ctx, tools.Invocation{
		Tool:    toolName,
		OwnerID: info.OwnerID,
		Role:    role,
		Args:    args,
		Scopes:  info.Scopes,
	})
	durationMs := int(time.Since(start).Milliseconds())

	// the response is already decided; the audit write must not affect it
	rec := &models.UsageRecord{
		APIKeyID:   info.KeyID,
		OwnerID:    info.OwnerID,
		ToolName:   toolName,
		Success:    result.Success,
		DurationMs: durationMs,
	}
	if result.Error != "" {
		errMsg := result.Error
		rec.ErrorMessage = &errMsg
	}
	h.usageService.RecordAsync(rec)
	h.hub.BroadcastToolExecuted(info.OwnerID, info.KeyID, toolName, result.Success, durationMs)

	_ = c.JSON(http.StatusOK, result)
}
