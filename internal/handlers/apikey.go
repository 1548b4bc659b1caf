package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/crewdesk/bridge-api/internal/events"
	"github.com/crewdesk/bridge-api/internal/middleware"
	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/crewdesk/bridge-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

var validScopes = map[string]bool{
	models.ScopeRead:  true,
	models.ScopeWrite: true,
	models.ScopeAdmin: true,
}

type APIKeyHandler struct {
	apiKeyService APIKeyServiceInterface
	hub           *events.Hub
}

func NewAPIKeyHandler(apiKeyService APIKeyServiceInterface, hub *events.Hub) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyService: apiKeyService,
		hub:           hub,
	}
}

func (h *APIKeyHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateAPIKeyRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		c.BadRequest("name is required")
		return
	}
	for _, scope := range req.Scopes {
		if !validScopes[scope] {
			c.BadRequest("invalid scope: " + scope)
			return
		}
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		c.BadRequest("expires_at must be in the future")
		return
	}

	apiKey, plainKey, err := h.apiKeyService.Create(context.Background(), userID, req.Name, req.Scopes, req.ExpiresAt)
	if err != nil {
		c.InternalServerError("failed to create api key")
		return
	}

	h.hub.BroadcastKeyCreated(userID, apiKey.ID, apiKey.Name, apiKey.KeyPrefix)

	response := dto.APIKeyCreatedResponse{
		ID:        apiKey.ID,
		Name:      apiKey.Name,
		Key:       plainKey,
		KeyPrefix: apiKey.KeyPrefix,
		Scopes:    apiKey.Scopes,
		CreatedAt: apiKey.CreatedAt.Format(time.RFC3339),
	}
	if apiKey.ExpiresAt != nil {
		formatted := apiKey.ExpiresAt.Format(time.RFC3339)
		response.ExpiresAt = &formatted
	}

	_ = c.JSON(201, response)
}

func (h *APIKeyHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	keys, err := h.apiKeyService.List(context.Background(), userID)
	if err != nil {
		c.InternalServerError("failed to list api keys")
		return
	}

	var response []dto.APIKeyResponse
	for _, k := range keys {
		item := dto.APIKeyResponse{
			ID:        k.ID,
			Name:      k.Name,
			KeyPrefix: k.KeyPrefix,
			Scopes:    k.Scopes,
			CreatedAt: k.CreatedAt.Format(time.RFC3339),
		}
		if k.ExpiresAt != nil {
			formatted := k.ExpiresAt.Format(time.RFC3339)
			item.ExpiresAt = &formatted
		}
		if k.LastUsedAt != nil {
			formatted := k.LastUsedAt.Format(time.RFC3339)
			item.LastUsedAt = &formatted
		}
		response = append(response, item)
	}

	if response == nil {
		response = []dto.APIKeyResponse{}
	}

	_ = c.JSON(200, response)
}

func (h *APIKeyHandler) Revoke(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		c.BadRequest("invalid key id")
		return
	}

	if err := h.apiKeyService.Revoke(context.Background(), keyID, userID); err != nil {
		c.NotFound("api key not found")
		return
	}

	h.hub.BroadcastKeyRevoked(userID, keyID)

	_ = c.JSON(200, map[string]string{"message": "api key revoked"})
}
