package persistence

import (
	"context"
	"database/sql"
	"errors"

	"slack-connect/domain/model"
	"slack-connect/domain/repository"
)

type CredentialRepositoryMSSQL struct{ db *sql.DB }

func NewCredentialRepositoryMSSQL(db *sql.DB) *CredentialRepositoryMSSQL {
	return &CredentialRepositoryMSSQL{db: db}
}

func (r *CredentialRepositoryMSSQL) Get(ctx context.Context, workspaceID string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM dbo.[slack_tokens] WHERE workspace_id=@p1`, workspaceID)
	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return cred, err
}

func (r *CredentialRepositoryMSSQL) Upsert(ctx context.Context, c *model.Credential) error {
	stampCredential(c)
	q := `MERGE dbo.[slack_tokens] WITH (HOLDLOCK) AS target
USING (VALUES (@p1)) AS src(workspace_id)
ON target.workspace_id = src.workspace_id
WHEN MATCHED THEN UPDATE SET
  workspace_name = @p2,
  access_token = @p3,
  refresh_token = @p4,
  expires_at = @p5,
  updated_at = @p7
WHEN NOT MATCHED THEN
  INSERT (workspace_id, workspace_name, access_token, refresh_token, expires_at, created_at, updated_at)
  VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7);`
	_, err := r.db.ExecContext(ctx, q, c.WorkspaceID, c.WorkspaceName, c.AccessToken, nullString(c.RefreshToken), nullInt64(c.ExpiresAt), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *CredentialRepositoryMSSQL) List(ctx context.Context) ([]model.Workspace, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT workspace_id, workspace_name FROM dbo.[slack_tokens] ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkspaces(rows)
}

func (r *CredentialRepositoryMSSQL) Delete(ctx context.Context, workspaceID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[slack_tokens] WHERE workspace_id=@p1`, workspaceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
