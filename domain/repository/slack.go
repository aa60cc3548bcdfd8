package repository

import (
	"context"

	"slack-connect/domain/model"
)

// ISender posts a message with a bearer token. Slack-side rejections are *model.ProviderError.
type ISender interface {
	Send(ctx context.Context, accessToken, channelID, text string) error
}

// IChannelLister lists the conversations a token can see.
type IChannelLister interface {
	ListChannels(ctx context.Context, accessToken string) ([]model.Channel, error)
}

// ITokenRefresher exchanges a refresh token for a new grant.
type ITokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error)
}

// IOAuthExchanger runs the authorization-code leg of the OAuth flow.
type IOAuthExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*model.TokenGrant, error)
}

// IChannelCache caches channel listings per workspace. Misses return (nil, false, nil).
type IChannelCache interface {
	GetChannels(ctx context.Context, workspaceID string) ([]model.Channel, bool, error)
	SetChannels(ctx context.Context, workspaceID string, channels []model.Channel) error
	Invalidate(ctx context.Context, workspaceID string) error
}

// IDeliveryNotifier receives delivery events after a status transition is committed.
type IDeliveryNotifier interface {
	Notify(ctx context.Context, evt model.DeliveryEvent) error
}

// IDeliveryAudit reads back recorded delivery events.
type IDeliveryAudit interface {
	ListByMessage(ctx context.Context, messageID int64) ([]model.DeliveryEvent, error)
}
