package integration

import (
	"context"
	"testing"
	"time"

	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/crewdesk/bridge-api/internal/services"
	"github.com/crewdesk/bridge-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsageRecord(keyID, ownerID uuid.UUID, toolName string, success bool, errMsg *string, durationMs int) *models.UsageRecord {
	return &models.UsageRecord{
		APIKeyID:     keyID,
		OwnerID:      ownerID,
		ToolName:     toolName,
		Success:      success,
		ErrorMessage: errMsg,
		DurationMs:   durationMs,
	}
}

func TestAPIKeyService_Integration_CreateAndValidate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewAPIKeyService(tdb.DB, 60*time.Second, 100)
	ctx := context.Background()

	user := fixtures.CreateUser(t)

	apiKey, plainKey, err := svc.Create(ctx, user.ID, "ci key", []string{"read", "write"}, nil)
	require.NoError(t, err)
	assert.Len(t, plainKey, 43)
	assert.Equal(t, plainKey[:8], apiKey.KeyPrefix)

	info, err := svc.Validate(ctx, plainKey)
	require.NoError(t, err)
	assert.Equal(t, apiKey.ID, info.KeyID)
	assert.Equal(t, user.ID, info.OwnerID)
	assert.Equal(t, []string{"read", "write"}, info.Scopes)
}

func TestAPIKeyService_Integration_ValidateTouchesLastUsed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewAPIKeyService(tdb.DB, 60*time.Second, 100)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	_, plainKey := fixtures.CreateAPIKey(t, user.ID)

	_, err := svc.Validate(ctx, plainKey)
	require.NoError(t, err)

	keys, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)
}

func TestAPIKeyService_Integration_ValidateExpired(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewAPIKeyService(tdb.DB, 60*time.Second, 100)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	_, plainKey := fixtures.CreateAPIKey(t, user.ID, testutil.WithExpiry(time.Now().Add(-time.Hour)))

	_, err := svc.Validate(ctx, plainKey)
	assert.ErrorIs(t, err, services.ErrKeyExpired)
}

func TestAPIKeyService_Integration_RevokedKeyRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewAPIKeyService(tdb.DB, 60*time.Second, 100)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	key, plainKey := fixtures.CreateAPIKey(t, user.ID)

	_, err := svc.Validate(ctx, plainKey)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, key.ID, user.ID))

	_, err = svc.Validate(ctx, plainKey)
	assert.ErrorIs(t, err, services.ErrInvalidKey)
}

func TestAPIKeyService_Integration_RateLimitWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewAPIKeyService(tdb.DB, 60*time.Second, 5)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	key, _ := fixtures.CreateAPIKey(t, user.ID)

	for i := 0; i < 4; i++ {
		fixtures.CreateUsageRecord(t, key.ID, user.ID, "ping", true)
	}

	allowed, err := svc.CheckRateLimit(ctx, key.ID)
	require.NoError(t, err)
	assert.True(t, allowed, "4 of 5 used, next request should pass")

	fixtures.CreateUsageRecord(t, key.ID, user.ID, "ping", true)

	allowed, err = svc.CheckRateLimit(ctx, key.ID)
	require.NoError(t, err)
	assert.False(t, allowed, "window full, next request should be denied")
}

func TestUsageService_Integration_RecordAndList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewUsageService(tdb.DB)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	key, _ := fixtures.CreateAPIKey(t, user.ID)

	errMsg := "tool blew up"
	require.NoError(t, svc.Record(ctx, newUsageRecord(key.ID, user.ID, "bridge.status", false, &errMsg, 42)))
	require.NoError(t, svc.Record(ctx, newUsageRecord(key.ID, user.ID, "ping", true, nil, 3)))

	records, err := svc.ListRecent(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ping", records[0].ToolName)
	assert.Equal(t, "bridge.status", records[1].ToolName)
	require.NotNil(t, records[1].ErrorMessage)
	assert.Equal(t, "tool blew up", *records[1].ErrorMessage)

	count, err := svc.CountSince(ctx, key.ID, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
