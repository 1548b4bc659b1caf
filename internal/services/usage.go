package services

import (
	"context"
	"log"
	"time"

	"github.com/crewdesk/bridge-api/internal/database"
	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/google/uuid"
)

type UsageService struct {
	db *database.DB
}

func NewUsageService(db *database.DB) *UsageService {
	return &UsageService{db: db}
}

// Record appends one usage entry.
func (s *UsageService) Record(ctx context.Context, rec *models.UsageRecord) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO usage_records (api_key_id, owner_id, tool_name, success, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.APIKeyID, rec.OwnerID, rec.ToolName, rec.Success, rec.ErrorMessage, rec.DurationMs)
	return err
}

// RecordAsync writes the entry on a detached goroutine. The write is
// fire-and-forget: a failure is logged and never reaches the caller, whose
// response has already been prepared.
func (s *UsageService) RecordAsync(rec *models.UsageRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Record(ctx, rec); err != nil {
			log.Printf("usage record write failed for key %s: %v", rec.APIKeyID, err)
		}
	}()
}

// CountSince counts a key's usage records created at or after the cutoff.
func (s *UsageService) CountSince(ctx context.Context, keyID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM usage_records
		WHERE api_key_id = $1 AND created_at >= $2
	`, keyID, since).Scan(&count)
	return count, err
}

// ListRecent returns an owner's newest usage entries for the audit view.
func (s *UsageService) ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.UsageRecord, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, api_key_id, owner_id, tool_name, success, error_message, duration_ms, created_at
		FROM usage_records
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(
			&r.ID, &r.APIKeyID, &r.OwnerID, &r.ToolName,
			&r.Success, &r.ErrorMessage, &r.DurationMs, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
