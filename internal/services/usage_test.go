package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crewdesk/bridge-api/internal/database"
	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUsageService(t *testing.T) (*UsageService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewUsageService(&database.DB{Pool: mock}), mock
}

func TestUsageService_Record(t *testing.T) {
	svc, mock := setupUsageService(t)
	ctx := context.Background()
	keyID := uuid.New()
	ownerID := uuid.New()
	errMsg := "tool blew up"

	mock.ExpectExec(`INSERT INTO usage_records`).
		WithArgs(keyID, ownerID, "bridge.status", false, &errMsg, 42).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := svc.Record(ctx, &models.UsageRecord{
		APIKeyID:     keyID,
		OwnerID:      ownerID,
		ToolName:     "bridge.status",
		Success:      false,
		ErrorMessage: &errMsg,
		DurationMs:   42,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageService_RecordAsync(t *testing.T) {
	svc, mock := setupUsageService(t)
	keyID := uuid.New()
	ownerID := uuid.New()

	mock.ExpectExec(`INSERT INTO usage_records`).
		WithArgs(keyID, ownerID, "ping", true, (*string)(nil), 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc.RecordAsync(&models.UsageRecord{
		APIKeyID:   keyID,
		OwnerID:    ownerID,
		ToolName:   "ping",
		Success:    true,
		DurationMs: 3,
	})

	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUsageService_RecordAsync_FailureDoesNotPanic(t *testing.T) {
	svc, mock := setupUsageService(t)

	mock.ExpectExec(`INSERT INTO usage_records`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	svc.RecordAsync(&models.UsageRecord{
		APIKeyID: uuid.New(),
		OwnerID:  uuid.New(),
		ToolName: "ping",
		Success:  true,
	})

	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUsageService_CountSince(t *testing.T) {
	svc, mock := setupUsageService(t)
	ctx := context.Background()
	keyID := uuid.New()
	since := time.Now().Add(-time.Minute)

	rows := pgxmock.NewRows([]string{"count"}).AddRow(7)
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(keyID, since).
		WillReturnRows(rows)

	count, err := svc.CountSince(ctx, keyID, since)

	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageService_ListRecent(t *testing.T) {
	svc, mock := setupUsageService(t)
	ctx := context.Background()
	ownerID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "api_key_id", "owner_id", "tool_name", "success", "error_message", "duration_ms", "created_at",
	}).
		AddRow(uuid.New(), uuid.New(), ownerID, "ping", true, (*string)(nil), 3, now).
		AddRow(uuid.New(), uuid.New(), ownerID, "bridge.status", true, (*string)(nil), 120, now)

	mock.ExpectQuery(`SELECT id, api_key_id, owner_id, tool_name`).
		WithArgs(ownerID, 10).
		WillReturnRows(rows)

	records, err := svc.ListRecent(ctx, ownerID, 10)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ping", records[0].ToolName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageService_ListRecent_ClampsLimit(t *testing.T) {
	svc, mock := setupUsageService(t)
	ctx := context.Background()
	ownerID := uuid.New()

	rows := pgxmock.NewRows([]string{
		"id", "api_key_id", "owner_id", "tool_name", "success", "error_message", "duration_ms", "created_at",
	})
	mock.ExpectQuery(`SELECT id, api_key_id, owner_id, tool_name`).
		WithArgs(ownerID, 100).
		WillReturnRows(rows)

	_, err := svc.ListRecent(ctx, ownerID, 9000)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
