package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"cloud.google.com/go/pubsub"

	"slack-connect/domain/model"
	"slack-connect/infrastructure/logger"
)

// NewPubSub creates a Google Cloud Pub/Sub client for projectID.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id not configured")
	}
	return pubsub.NewClient(ctx, projectID)
}

// DeliveryPublisher publishes delivery events to a Pub/Sub topic.
type DeliveryPublisher struct {
	topic *pubsub.Topic
}

// NewDeliveryPublisher resolves topicName, creating it when it does not exist yet.
func NewDeliveryPublisher(ctx context.Context, client *pubsub.Client, topicName string) (*DeliveryPublisher, error) {
	topic := client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		logger.GetLogger().WithField("topic", topicName).Info("Topic doesn't exist - creating it")
		topic, err = client.CreateTopic(ctx, topicName)
		if err != nil {
			return nil, err
		}
	}
	return &DeliveryPublisher{topic: topic}, nil
}

func (p *DeliveryPublisher) Notify(ctx context.Context, evt model.DeliveryEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":         evt.Type,
			"workspace_id": evt.WorkspaceID,
			"message_id":   strconv.FormatInt(evt.MessageID, 10),
			"status":       string(evt.Status),
		},
	}
	serverID, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).Debug("Delivery event published")
	return nil
}

// Stop flushes pending publishes.
func (p *DeliveryPublisher) Stop() {
	p.topic.Stop()
}
