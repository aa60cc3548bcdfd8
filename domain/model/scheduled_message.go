package model

// MessageStatus is the delivery state of a scheduled message.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusCancelled MessageStatus = "cancelled"
	StatusFailed    MessageStatus = "failed"
)

// IsTerminal reports whether no further transition may leave the status.
func (s MessageStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusCancelled || s == StatusFailed
}

// ScheduledMessage is a message waiting for (or done with) deferred delivery.
// Timestamps are unix seconds.
type ScheduledMessage struct {
	ID            int64         `json:"id"`
	WorkspaceID   string        `json:"workspace_id"`
	ChannelID     string        `json:"channel_id"`
	ChannelName   string        `json:"channel_name"`
	Message       string        `json:"message"`
	ScheduledTime int64         `json:"scheduled_time"`
	Status        MessageStatus `json:"status"`
	CreatedAt     int64         `json:"created_at"`
}

// IsDue reports whether the message should be dispatched at now.
func (m *ScheduledMessage) IsDue(now int64) bool {
	return m.Status == StatusPending && m.ScheduledTime <= now
}

// Channel is a Slack conversation the workspace can post into.
type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
}

// DeliveryEvent is emitted after a scheduled message reaches a terminal status.
type DeliveryEvent struct {
	Type        string        `json:"type" bson:"type"`
	MessageID   int64         `json:"message_id" bson:"message_id"`
	WorkspaceID string        `json:"workspace_id" bson:"workspace_id"`
	ChannelID   string        `json:"channel_id" bson:"channel_id"`
	Status      MessageStatus `json:"status" bson:"status"`
	Error       *string       `json:"error,omitempty" bson:"error,omitempty"`
	OccurredAt  int64         `json:"occurred_at" bson:"occurred_at"`
}

const DeliveryEventType = "delivery_status"

// NewDeliveryEvent builds the event for a committed status transition.
func NewDeliveryEvent(msg *ScheduledMessage, status MessageStatus, cause error, at int64) DeliveryEvent {
	evt := DeliveryEvent{
		Type:        DeliveryEventType,
		MessageID:   msg.ID,
		WorkspaceID: msg.WorkspaceID,
		ChannelID:   msg.ChannelID,
		Status:      status,
		OccurredAt:  at,
	}
	if cause != nil {
		s := cause.Error()
		evt.Error = &s
	}
	return evt
}
