package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		global_role VARCHAR(50) NOT NULL DEFAULT 'member',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		key_prefix VARCHAR(8) NOT NULL,
		key_hash VARCHAR(64) NOT NULL UNIQUE,
		scopes JSONB NOT NULL DEFAULT '["read"]',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		expires_at TIMESTAMP WITH TIME ZONE,
		last_used_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_api_keys_owner_id ON api_keys(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_key_hash ON api_keys(key_hash)`,

	`CREATE TABLE IF NOT EXISTS usage_records (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		api_key_id UUID NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE,
		owner_id UUID NOT NULL,
		tool_name VARCHAR(255) NOT NULL,
		success BOOLEAN NOT NULL,
		error_message TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// Rate limiting counts records per key inside a trailing window
	`CREATE INDEX IF NOT EXISTS idx_usage_records_key_created ON usage_records(api_key_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_records_owner_id ON usage_records(owner_id)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
