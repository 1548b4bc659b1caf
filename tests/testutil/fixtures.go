package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/crewdesk/bridge-api/internal/database"
	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/crewdesk/bridge-api/internal/services"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// UserOption configures a test user
type UserOption func(*models.User)

func WithGlobalRole(role string) UserOption {
	return func(u *models.User) { u.GlobalRole = role }
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email:      fmt.Sprintf("user%d@example.com", f.counter),
		Name:       fmt.Sprintf("Test User %d", f.counter),
		GlobalRole: models.GlobalRoleMember,
	}

	for _, opt := range opts {
		opt(user)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, global_role)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, global_role, created_at, updated_at
	`, user.Email, user.Name, user.GlobalRole).Scan(
		&user.ID, &user.Email, &user.Name, &user.GlobalRole,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// APIKeyOption configures a test API key
type APIKeyOption func(*models.APIKey)

func WithScopes(scopes ...string) APIKeyOption {
	return func(k *models.APIKey) { k.Scopes = scopes }
}

func WithExpiry(expiresAt time.Time) APIKeyOption {
	return func(k *models.APIKey) { k.ExpiresAt = &expiresAt }
}

// CreateAPIKey inserts a key row directly and returns it together with the
// plaintext secret.
func (f *Fixtures) CreateAPIKey(t *testing.T, ownerID uuid.UUID, opts ...APIKeyOption) (*models.APIKey, string) {
	t.Helper()
	f.counter++

	plainKey, keyHash, keyPrefix := services.GenerateKey()
	key := &models.APIKey{
		OwnerID:   ownerID,
		Name:      fmt.Sprintf("test key %d", f.counter),
		KeyHash:   keyHash,
		KeyPrefix: keyPrefix,
		Scopes:    []string{models.ScopeRead},
	}

	for _, opt := range opts {
		opt(key)
	}

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		t.Fatalf("failed to encode scopes: %v", err)
	}

	ctx := context.Background()
	err = f.db.Pool.QueryRow(ctx, `
		INSERT INTO api_keys (owner_id, name, key_hash, key_prefix, scopes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, created_at
	`, key.OwnerID, key.Name, key.KeyHash, key.KeyPrefix, scopesJSON, key.ExpiresAt).Scan(
		&key.ID, &key.IsActive, &key.CreatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create api key: %v", err)
	}

	return key, plainKey
}

// CreateUsageRecord inserts one usage row for a key.
func (f *Fixtures) CreateUsageRecord(t *testing.T, keyID, ownerID uuid.UUID, toolName string, success bool) *models.UsageRecord {
	t.Helper()

	rec := &models.UsageRecord{
		APIKeyID: keyID,
		OwnerID:  ownerID,
		ToolName: toolName,
		Success:  success,
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO usage_records (api_key_id, owner_id, tool_name, success, duration_ms)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, rec.APIKeyID, rec.OwnerID, rec.ToolName, rec.Success, rec.DurationMs).Scan(
		&rec.ID, &rec.CreatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create usage record: %v", err)
	}

	return rec
}
