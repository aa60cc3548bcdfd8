package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"slack-connect/domain/model"
	"slack-connect/domain/repository"
	"slack-connect/infrastructure/logger"
	"slack-connect/infrastructure/metrics"
)

const (
	DefaultRefreshThreshold = 300 * time.Second
	DefaultRequestTimeout   = 10 * time.Second
)

type ICredentialManager interface {
	// GetValidCredential returns an access token that will not expire within the refresh threshold.
	GetValidCredential(ctx context.Context, workspaceID string) (string, error)
}

// CredentialManager hands out usable Slack access tokens, refreshing them shortly
// before expiry. Refreshes are serialised per workspace.
type CredentialManager struct {
	store     repository.ICredential
	refresher repository.ITokenRefresher
	threshold time.Duration
	timeout   time.Duration
	now       func() time.Time
	metrics   *metrics.Metrics
	flights   singleflight.Group
}

type CredentialManagerOption func(*CredentialManager)

func WithRefreshThreshold(d time.Duration) CredentialManagerOption {
	return func(m *CredentialManager) {
		if d > 0 {
			m.threshold = d
		}
	}
}

func WithRequestTimeout(d time.Duration) CredentialManagerOption {
	return func(m *CredentialManager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithClock(now func() time.Time) CredentialManagerOption {
	return func(m *CredentialManager) { m.now = now }
}

func WithCredentialMetrics(mt *metrics.Metrics) CredentialManagerOption {
	return func(m *CredentialManager) { m.metrics = mt }
}

func NewCredentialManager(store repository.ICredential, refresher repository.ITokenRefresher, opts ...CredentialManagerOption) *CredentialManager {
	m := &CredentialManager{
		store:     store,
		refresher: refresher,
		threshold: DefaultRefreshThreshold,
		timeout:   DefaultRequestTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *CredentialManager) GetValidCredential(ctx context.Context, workspaceID string) (string, error) {
	cred, err := m.load(ctx, workspaceID)
	if err != nil {
		return "", err
	}
	if !m.needsRefresh(cred) {
		return cred.AccessToken, nil
	}

	// The flight outlives any single caller; a caller that goes away just stops waiting.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.flights.DoChan(workspaceID, func() (interface{}, error) {
		return m.refresh(flightCtx, workspaceID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *CredentialManager) refresh(ctx context.Context, workspaceID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// Re-read: a refresh that finished just before this flight started already persisted a fresh token.
	cred, err := m.load(ctx, workspaceID)
	if err != nil {
		return "", err
	}
	if !m.needsRefresh(cred) {
		return cred.AccessToken, nil
	}
	if !cred.HasRefreshToken() {
		m.metrics.RecordRefresh("unavailable")
		return "", &model.AuthError{WorkspaceID: workspaceID, Kind: model.ErrRefreshUnavailable}
	}

	grant, err := m.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		m.metrics.RecordRefresh("failed")
		logger.GetLogger().
			WithField("workspace_id", workspaceID).
			WithField("error", err).
			Warn("Slack token refresh failed")
		return "", &model.AuthError{WorkspaceID: workspaceID, Kind: model.ErrRefreshFailed, Err: err}
	}

	now := m.now().Unix()
	updated := *cred
	updated.AccessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		updated.RefreshToken = grant.RefreshToken
	}
	expiresAt := grant.ExpiresAtFrom(now)
	updated.ExpiresAt = &expiresAt
	updated.UpdatedAt = now

	if err := m.store.Upsert(ctx, &updated); err != nil {
		m.metrics.RecordRefresh("store_error")
		logger.GetLogger().
			WithField("workspace_id", workspaceID).
			WithField("error", err).
			Error("Failed to persist refreshed Slack token")
		return "", &model.StoreError{Operation: "upsert credential", Err: err}
	}

	m.metrics.RecordRefresh("success")
	logger.GetLogger().
		WithField("workspace_id", workspaceID).
		WithField("expires_at", expiresAt).
		Info("Slack token refreshed")
	return updated.AccessToken, nil
}

func (m *CredentialManager) load(ctx context.Context, workspaceID string) (*model.Credential, error) {
	cred, err := m.store.Get(ctx, workspaceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &model.AuthError{WorkspaceID: workspaceID, Kind: model.ErrNotConnected}
	}
	if err != nil {
		return nil, &model.StoreError{Operation: "get credential", Err: err}
	}
	return cred, nil
}

func (m *CredentialManager) needsRefresh(cred *model.Credential) bool {
	return cred.ExpiresWithin(m.now().Unix(), int64(m.threshold/time.Second))
}
