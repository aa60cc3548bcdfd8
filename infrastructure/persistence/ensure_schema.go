package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"slack-connect/infrastructure/logger"
)

// EnsureSchema creates the PostgreSQL tables used by the credential and message stores.
// Safe to call at startup.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tables := []struct {
		name string
		ddl  string
	}{
		{"slack_tokens", `CREATE TABLE IF NOT EXISTS slack_tokens (
			id BIGSERIAL PRIMARY KEY,
			workspace_id TEXT NOT NULL UNIQUE,
			workspace_name TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL,
			refresh_token TEXT NULL,
			expires_at BIGINT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`},
		{"scheduled_messages", `CREATE TABLE IF NOT EXISTS scheduled_messages (
			id BIGSERIAL PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			channel_name TEXT NOT NULL,
			message TEXT NOT NULL,
			scheduled_time BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at BIGINT NOT NULL
		)`},
	}
	for _, t := range tables {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", t.name, err)
		}
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_scheduled_messages_due ON scheduled_messages(status, scheduled_time, id)`); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed creating idx_scheduled_messages_due")
	}
	return nil
}
