package usecase

import (
	"context"
	"time"

	"slack-connect/domain/model"
	"slack-connect/domain/repository"
	"slack-connect/infrastructure/logger"
)

type IWorkspaceUsecase interface {
	AuthURL(state string) string
	Connect(ctx context.Context, code string) (*model.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]model.Workspace, error)
	Disconnect(ctx context.Context, workspaceID string) error
}

type workspaceUsecase struct {
	store     repository.ICredential
	exchanger repository.IOAuthExchanger
	cache     repository.IChannelCache
	now       func() time.Time
}

// NewWorkspaceUsecase wires the OAuth connect flow. cache may be nil.
func NewWorkspaceUsecase(store repository.ICredential, exchanger repository.IOAuthExchanger, cache repository.IChannelCache) IWorkspaceUsecase {
	return &workspaceUsecase{store: store, exchanger: exchanger, cache: cache, now: time.Now}
}

func (u *workspaceUsecase) AuthURL(state string) string {
	return u.exchanger.AuthCodeURL(state)
}

// Connect exchanges an authorization code and stores the workspace credential,
// replacing any earlier one.
func (u *workspaceUsecase) Connect(ctx context.Context, code string) (*model.Workspace, error) {
	if code == "" {
		return nil, model.NewValidationError("missing authorization code")
	}
	grant, err := u.exchanger.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	now := u.now().Unix()
	expiresAt := grant.ExpiresAtFrom(now)
	cred := &model.Credential{
		WorkspaceID:   grant.WorkspaceID,
		WorkspaceName: grant.WorkspaceName,
		AccessToken:   grant.AccessToken,
		RefreshToken:  grant.RefreshToken,
		ExpiresAt:     &expiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.store.Upsert(ctx, cred); err != nil {
		return nil, &model.StoreError{Operation: "upsert credential", Err: err}
	}
	u.invalidate(ctx, grant.WorkspaceID)

	logger.GetLogger().
		WithField("workspace_id", grant.WorkspaceID).
		WithField("has_refresh_token", cred.HasRefreshToken()).
		Info("Slack workspace connected")
	return &model.Workspace{WorkspaceID: grant.WorkspaceID, WorkspaceName: grant.WorkspaceName}, nil
}

func (u *workspaceUsecase) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	list, err := u.store.List(ctx)
	if err != nil {
		return nil, &model.StoreError{Operation: "list workspaces", Err: err}
	}
	return list, nil
}

func (u *workspaceUsecase) Disconnect(ctx context.Context, workspaceID string) error {
	n, err := u.store.Delete(ctx, workspaceID)
	if err != nil {
		return &model.StoreError{Operation: "delete credential", Err: err}
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	u.invalidate(ctx, workspaceID)
	logger.GetLogger().WithField("workspace_id", workspaceID).Info("Slack workspace disconnected")
	return nil
}

func (u *workspaceUsecase) invalidate(ctx context.Context, workspaceID string) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Invalidate(ctx, workspaceID); err != nil {
		logger.GetLogger().WithField("workspace_id", workspaceID).WithField("error", err).Warn("Failed to invalidate channel cache")
	}
}
