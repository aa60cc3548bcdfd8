package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"slack-connect/domain/model"
	"slack-connect/domain/repository"
)

const credentialColumns = `id, workspace_id, workspace_name, access_token, refresh_token, expires_at, created_at, updated_at`

// CredentialRepository stores one Slack credential per workspace in PostgreSQL.
type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) *CredentialRepository { return &CredentialRepository{db: db} }

func (r *CredentialRepository) Get(ctx context.Context, workspaceID string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM slack_tokens WHERE workspace_id=$1`, workspaceID)
	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return cred, err
}

// Upsert replaces the credential for c.WorkspaceID. created_at survives updates.
func (r *CredentialRepository) Upsert(ctx context.Context, c *model.Credential) error {
	stampCredential(c)
	q := `INSERT INTO slack_tokens (workspace_id, workspace_name, access_token, refresh_token, expires_at, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7)
		  ON CONFLICT (workspace_id) DO UPDATE SET
			workspace_name=EXCLUDED.workspace_name,
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			expires_at=EXCLUDED.expires_at,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, c.WorkspaceID, c.WorkspaceName, c.AccessToken, nullString(c.RefreshToken), nullInt64(c.ExpiresAt), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *CredentialRepository) List(ctx context.Context) ([]model.Workspace, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT workspace_id, workspace_name FROM slack_tokens ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkspaces(rows)
}

func (r *CredentialRepository) Delete(ctx context.Context, workspaceID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM slack_tokens WHERE workspace_id=$1`, workspaceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*model.Credential, error) {
	c := &model.Credential{}
	var refresh sql.NullString
	var exp sql.NullInt64
	if err := row.Scan(&c.ID, &c.WorkspaceID, &c.WorkspaceName, &c.AccessToken, &refresh, &exp, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if refresh.Valid {
		c.RefreshToken = refresh.String
	}
	if exp.Valid {
		v := exp.Int64
		c.ExpiresAt = &v
	}
	return c, nil
}

func scanWorkspaces(rows *sql.Rows) ([]model.Workspace, error) {
	list := []model.Workspace{}
	for rows.Next() {
		var w model.Workspace
		if err := rows.Scan(&w.WorkspaceID, &w.WorkspaceName); err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// stampCredential fills created_at for new rows and always bumps updated_at.
func stampCredential(c *model.Credential) {
	now := time.Now().Unix()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
