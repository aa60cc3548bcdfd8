package repository

import (
	"context"

	"slack-connect/domain/model"
)

// IScheduledMessage persists deferred messages.
type IScheduledMessage interface {
	// Create inserts a pending message and returns its id.
	Create(ctx context.Context, msg *model.ScheduledMessage) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.ScheduledMessage, error)
	// FindDue returns pending messages with scheduled_time <= now ordered by scheduled_time, id.
	FindDue(ctx context.Context, now int64) ([]model.ScheduledMessage, error)
	// ListPending returns every pending message ordered by scheduled_time.
	ListPending(ctx context.Context) ([]model.ScheduledMessage, error)
	// SetStatus moves a message from one status to another in a single conditional write.
	// Zero rows affected means the message was not in status from.
	SetStatus(ctx context.Context, id int64, from, to model.MessageStatus) (int64, error)
}
