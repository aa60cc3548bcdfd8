package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSchemaMSSQL creates the SQL Server tables used by the credential and message stores.
func EnsureSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tokens := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.slack_tokens') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[slack_tokens] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        workspace_id NVARCHAR(64) NOT NULL,
        workspace_name NVARCHAR(255) NOT NULL DEFAULT '',
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NULL,
        expires_at BIGINT NULL,
        created_at BIGINT NOT NULL,
        updated_at BIGINT NOT NULL
    );
    CREATE UNIQUE INDEX UX_slack_tokens_workspace ON dbo.[slack_tokens](workspace_id);
END`
	if _, err := db.ExecContext(ctx, tokens); err != nil {
		return fmt.Errorf("create slack_tokens (mssql): %w", err)
	}

	messages := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.scheduled_messages') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[scheduled_messages] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        workspace_id NVARCHAR(64) NOT NULL,
        channel_id NVARCHAR(64) NOT NULL,
        channel_name NVARCHAR(255) NOT NULL,
        message NVARCHAR(MAX) NOT NULL,
        scheduled_time BIGINT NOT NULL,
        status NVARCHAR(16) NOT NULL DEFAULT 'pending',
        created_at BIGINT NOT NULL
    );
    CREATE INDEX IX_scheduled_messages_due ON dbo.[scheduled_messages](status, scheduled_time, id);
END`
	if _, err := db.ExecContext(ctx, messages); err != nil {
		return fmt.Errorf("create scheduled_messages (mssql): %w", err)
	}
	return nil
}
