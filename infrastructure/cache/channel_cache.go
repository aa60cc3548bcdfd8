package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"slack-connect/domain/model"

	"github.com/redis/go-redis/v9"
)

const channelKeyPrefix = "slack:channels:"

// ChannelCache stores a workspace's channel list as JSON with a TTL.
// A nil client makes every lookup a miss.
type ChannelCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewChannelCache(client *redis.Client, ttl time.Duration) *ChannelCache {
	return &ChannelCache{client: client, ttl: ttl}
}

func channelKey(workspaceID string) string {
	return channelKeyPrefix + workspaceID
}

// GetChannels reports ok=false on a miss.
func (c *ChannelCache) GetChannels(ctx context.Context, workspaceID string) ([]model.Channel, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, channelKey(workspaceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var channels []model.Channel
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, false, err
	}
	return channels, true, nil
}

func (c *ChannelCache) SetChannels(ctx context.Context, workspaceID string, channels []model.Channel) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(channels)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, channelKey(workspaceID), data, c.ttl).Err()
}

func (c *ChannelCache) Invalidate(ctx context.Context, workspaceID string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, channelKey(workspaceID)).Err()
}
