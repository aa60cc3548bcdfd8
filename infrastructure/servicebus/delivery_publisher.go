package servicebus

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"slack-connect/domain/model"
	"slack-connect/infrastructure/logger"
)

// NewServiceBus creates an Azure Service Bus client for the fully qualified namespace
// using the default Azure credential chain.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, errors.New("service bus namespace not configured")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// DeliveryPublisher sends delivery events to a Service Bus queue.
type DeliveryPublisher struct {
	sender messageSender
}

func NewDeliveryPublisher(client *azservicebus.Client, queue string) (*DeliveryPublisher, error) {
	sender, err := client.NewSender(queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return nil, err
	}
	return &DeliveryPublisher{sender: sender}, nil
}

func (p *DeliveryPublisher) Notify(ctx context.Context, evt model.DeliveryEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	contentType := "application/json"
	subject := evt.Type
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		ApplicationProperties: map[string]any{
			"workspace_id": evt.WorkspaceID,
			"message_id":   evt.MessageID,
			"status":       string(evt.Status),
		},
	}
	return p.sender.SendMessage(ctx, msg, nil)
}

func (p *DeliveryPublisher) Close(ctx context.Context) {
	if err := p.sender.Close(ctx); err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while closing sender.")
	}
}
