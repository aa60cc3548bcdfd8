package repository

import (
	"context"
	"errors"

	"slack-connect/domain/model"
)

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// ICredential stores one Slack credential per workspace.
type ICredential interface {
	// Get returns ErrNotFound when the workspace is not connected.
	Get(ctx context.Context, workspaceID string) (*model.Credential, error)
	// Upsert replaces the full record keyed by workspace_id.
	Upsert(ctx context.Context, cred *model.Credential) error
	List(ctx context.Context) ([]model.Workspace, error)
	// Delete returns the number of rows removed.
	Delete(ctx context.Context, workspaceID string) (int64, error)
}
