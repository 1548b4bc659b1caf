package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is one append-only audit entry, written once per tool
// invocation attempt. It doubles as the rate-limiting window's source of
// truth.
type UsageRecord struct {
	ID           uuid.UUID `json:"id"`
	APIKeyID     uuid.UUID `json:"api_key_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	ToolName     string    `json:"tool_name"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	DurationMs   int       `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
