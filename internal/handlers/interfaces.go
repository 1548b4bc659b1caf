package handlers

import (
	"context"
	"time"

	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/crewdesk/bridge-api/internal/services"
	"github.com/google/uuid"
)

// APIKeyServiceInterface defines the methods used by handlers from APIKeyService
type APIKeyServiceInterface interface {
	Create(ctx context.Context, ownerID uuid.UUID, name string, scopes []string, expiresAt *time.Time) (*models.APIKey, string, error)
	Validate(ctx context.Context, key string) (*services.KeyInfo, error)
	CheckRateLimit(ctx context.Context, keyID uuid.UUID) (bool, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]models.APIKey, error)
	Revoke(ctx context.Context, keyID, ownerID uuid.UUID) error
	Delete(ctx context.Context, keyID, ownerID uuid.UUID) error
}

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	LookupRole(ctx context.Context, ownerID uuid.UUID) string
}

// UsageServiceInterface defines the methods used by handlers from UsageService
type UsageServiceInterface interface {
	RecordAsync(rec *models.UsageRecord)
	ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.UsageRecord, error)
}
