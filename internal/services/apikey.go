package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/crewdesk/bridge-api/internal/database"
	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/google/uuid"
)

// Validation failures are terminal for the calling request and surface
// verbatim as the 401 body, so the messages are part of the API.
var (
	ErrInvalidKey     = errors.New("Invalid API key")
	ErrKeyExpired     = errors.New("API key expired")
	ErrInvalidKeyData = errors.New("Invalid API key data")
	ErrAPIKeyNotFound = errors.New("api key not found")
)

const (
	apiKeyTag       = "ck_"
	apiKeyRandomLen = 20
	keyPrefixLen    = 8
)

// KeyInfo is the authenticated identity a validated key resolves to.
type KeyInfo struct {
	KeyID   uuid.UUID
	OwnerID uuid.UUID
	Scopes  []string
}

type APIKeyService struct {
	db              *database.DB
	rateLimitWindow time.Duration
	rateLimitMax    int
}

func NewAPIKeyService(db *database.DB, rateLimitWindow time.Duration, rateLimitMax int) *APIKeyService {
	return &APIKeyService{
		db:              db,
		rateLimitWindow: rateLimitWindow,
		rateLimitMax:    rateLimitMax,
	}
}

// GenerateKey produces a new secret with the format ck_<40 hex chars>.
// The prefix is the first 8 characters, stored for display only; it is
// never sufficient to authenticate.
func GenerateKey() (plainKey, keyHash, keyPrefix string) {
	randomBytes := make([]byte, apiKeyRandomLen)
	_, _ = rand.Read(randomBytes)

	plainKey = apiKeyTag + hex.EncodeToString(randomBytes)
	keyPrefix = plainKey[:keyPrefixLen]
	keyHash = HashKey(plainKey)

	return plainKey, keyHash, keyPrefix
}

// HashKey returns the hex-encoded SHA-256 digest of the secret. Only the
// hash is ever stored.
func HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// Create issues a new key for an owner and returns the row together with
// the plaintext secret, which is shown exactly once.
func (s *APIKeyService) Create(ctx context.Context, ownerID uuid.UUID, name string, scopes []string, expiresAt *time.Time) (*models.APIKey, string, error) {
	plainKey, keyHash, keyPrefix := GenerateKey()

	if len(scopes) == 0 {
		scopes = []string{models.ScopeRead}
	}
	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode scopes: %w", err)
	}

	var apiKey models.APIKey
	var scopesRaw []byte
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO api_keys (owner_id, name, key_hash, key_prefix, scopes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, owner_id, name, key_hash, key_prefix, scopes, is_active, expires_at, last_used_at, created_at
	`, ownerID, name, keyHash, keyPrefix, scopesJSON, expiresAt).Scan(
		&apiKey.ID, &apiKey.OwnerID, &apiKey.Name, &apiKey.KeyHash,
		&apiKey.KeyPrefix, &scopesRaw, &apiKey.IsActive,
		&apiKey.ExpiresAt, &apiKey.LastUsedAt, &apiKey.CreatedAt,
	)
	if err != nil {
		return nil, "", err
	}
	_ = json.Unmarshal(scopesRaw, &apiKey.Scopes)

	return &apiKey, plainKey, nil
}

// Validate authenticates a raw secret and resolves its owner, scopes and
// key id. The last_used_at touch is best-effort: a failed update is logged
// and never fails the validation.
func (s *APIKeyService) Validate(ctx context.Context, key string) (*KeyInfo, error) {
	keyHash := HashKey(key)

	var (
		id        uuid.UUID
		ownerID   uuid.UUID
		scopesRaw []byte
		expiresAt *time.Time
	)
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, owner_id, scopes, expires_at
		FROM api_keys
		WHERE key_hash = $1 AND is_active = TRUE
	`, keyHash).Scan(&id, &ownerID, &scopesRaw, &expiresAt)
	if err != nil {
		return nil, ErrInvalidKey
	}

	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return nil, ErrKeyExpired
	}

	var scopes []string
	if err := json.Unmarshal(scopesRaw, &scopes); err != nil {
		return nil, ErrInvalidKeyData
	}

	if _, err := s.db.Pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = NOW() WHERE id = $1
	`, id); err != nil {
		log.Printf("api key last_used_at update failed: %v", err)
	}

	return &KeyInfo{KeyID: id, OwnerID: ownerID, Scopes: scopes}, nil
}

// CheckRateLimit counts the key's usage records inside the trailing window
// and allows the request iff the count is below the cap. The current
// request's own record does not exist yet, so the Nth request in a window
// passes and the (N+1)th is denied.
func (s *APIKeyService) CheckRateLimit(ctx context.Context, keyID uuid.UUID) (bool, error) {
	since := time.Now().Add(-s.rateLimitWindow)

	var count int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM usage_records
		WHERE api_key_id = $1 AND created_at >= $2
	`, keyID, since).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count usage records: %w", err)
	}

	return count < s.rateLimitMax, nil
}

// List returns all active keys for an owner, newest first.
func (s *APIKeyService) List(ctx context.Context, ownerID uuid.UUID) ([]models.APIKey, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, owner_id, name, key_hash, key_prefix, scopes, is_active, expires_at, last_used_at, created_at
		FROM api_keys
		WHERE owner_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		var k models.APIKey
		var scopesRaw []byte
		if err := rows.Scan(
			&k.ID, &k.OwnerID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&scopesRaw, &k.IsActive, &k.ExpiresAt, &k.LastUsedAt, &k.CreatedAt,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(scopesRaw, &k.Scopes)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Revoke soft-revokes a key by deactivating it.
func (s *APIKeyService) Revoke(ctx context.Context, keyID, ownerID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		UPDATE api_keys
		SET is_active = FALSE
		WHERE id = $1 AND owner_id = $2 AND is_active = TRUE
	`, keyID, ownerID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// Delete physically removes a key and, via cascade, its usage records.
func (s *APIKeyService) Delete(ctx context.Context, keyID, ownerID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		DELETE FROM api_keys WHERE id = $1 AND owner_id = $2
	`, keyID, ownerID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}
