package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"slack-connect/domain/dto"
	"slack-connect/domain/model"
	"slack-connect/domain/repository"
	"slack-connect/infrastructure/logger"
)

type IMessageUsecase interface {
	SendNow(ctx context.Context, req dto.SendMessageRequest) error
	Schedule(ctx context.Context, req dto.ScheduleMessageRequest) (*model.ScheduledMessage, error)
	ListPending(ctx context.Context) ([]model.ScheduledMessage, error)
	Cancel(ctx context.Context, id int64) error
	ListChannels(ctx context.Context, workspaceID string) ([]model.Channel, error)
	History(ctx context.Context, id int64) ([]model.DeliveryEvent, error)
}

type messageUsecase struct {
	messages  repository.IScheduledMessage
	creds     ICredentialManager
	sender    repository.ISender
	lister    repository.IChannelLister
	cache     repository.IChannelCache
	audit     repository.IDeliveryAudit
	notifiers []repository.IDeliveryNotifier
	timeout   time.Duration
	now       func() time.Time
}

type MessageUsecaseOption func(*messageUsecase)

func WithChannelCache(c repository.IChannelCache) MessageUsecaseOption {
	return func(u *messageUsecase) { u.cache = c }
}

func WithDeliveryAudit(a repository.IDeliveryAudit) MessageUsecaseOption {
	return func(u *messageUsecase) { u.audit = a }
}

func WithCancelNotifiers(n ...repository.IDeliveryNotifier) MessageUsecaseOption {
	return func(u *messageUsecase) { u.notifiers = append(u.notifiers, n...) }
}

func WithMessageClock(now func() time.Time) MessageUsecaseOption {
	return func(u *messageUsecase) { u.now = now }
}

func WithMessageTimeout(d time.Duration) MessageUsecaseOption {
	return func(u *messageUsecase) {
		if d > 0 {
			u.timeout = d
		}
	}
}

func NewMessageUsecase(messages repository.IScheduledMessage, creds ICredentialManager, sender repository.ISender, lister repository.IChannelLister, opts ...MessageUsecaseOption) IMessageUsecase {
	u := &messageUsecase{
		messages: messages,
		creds:    creds,
		sender:   sender,
		lister:   lister,
		timeout:  DefaultRequestTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *messageUsecase) SendNow(ctx context.Context, req dto.SendMessageRequest) error {
	if missing := missingFields(map[string]string{
		"workspaceId": req.WorkspaceID,
		"channelId":   req.ChannelID,
		"message":     req.Message,
	}); missing != "" {
		return model.NewValidationError("missing required fields: " + missing)
	}
	token, err := u.creds.GetValidCredential(ctx, req.WorkspaceID)
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	return u.sender.Send(sendCtx, token, req.ChannelID, req.Message)
}

func (u *messageUsecase) Schedule(ctx context.Context, req dto.ScheduleMessageRequest) (*model.ScheduledMessage, error) {
	if missing := missingFields(map[string]string{
		"workspaceId": req.WorkspaceID,
		"channelId":   req.ChannelID,
		"channelName": req.ChannelName,
		"message":     req.Message,
	}); missing != "" {
		return nil, model.NewValidationError("missing required fields: " + missing)
	}
	if req.ScheduledTime == 0 {
		return nil, model.NewValidationError("missing required fields: scheduledTime")
	}
	now := u.now().Unix()
	if int64(req.ScheduledTime) <= now {
		return nil, model.NewValidationError("scheduled time must be in the future")
	}

	msg := &model.ScheduledMessage{
		WorkspaceID:   req.WorkspaceID,
		ChannelID:     req.ChannelID,
		ChannelName:   req.ChannelName,
		Message:       req.Message,
		ScheduledTime: int64(req.ScheduledTime),
		Status:        model.StatusPending,
		CreatedAt:     now,
	}
	if _, err := u.messages.Create(ctx, msg); err != nil {
		return nil, &model.StoreError{Operation: "create scheduled message", Err: err}
	}
	logger.GetLogger().
		WithField("message_id", msg.ID).
		WithField("workspace_id", msg.WorkspaceID).
		WithField("scheduled_time", msg.ScheduledTime).
		Info("Message scheduled")
	return msg, nil
}

func (u *messageUsecase) ListPending(ctx context.Context) ([]model.ScheduledMessage, error) {
	list, err := u.messages.ListPending(ctx)
	if err != nil {
		return nil, &model.StoreError{Operation: "list pending messages", Err: err}
	}
	return list, nil
}

func (u *messageUsecase) Cancel(ctx context.Context, id int64) error {
	n, err := u.messages.SetStatus(ctx, id, model.StatusPending, model.StatusCancelled)
	if err != nil {
		return &model.StoreError{Operation: "cancel scheduled message", Err: err}
	}
	if n == 0 {
		return model.ErrMessageAlreadyResolved
	}
	logger.GetLogger().WithField("message_id", id).Info("Scheduled message cancelled")

	if len(u.notifiers) > 0 {
		msg, err := u.messages.GetByID(ctx, id)
		if err != nil {
			logger.GetLogger().WithField("message_id", id).WithField("error", err).Warn("Cancelled message not readable for notification")
			return nil
		}
		evt := model.NewDeliveryEvent(msg, model.StatusCancelled, nil, u.now().Unix())
		// The cancel is committed; a client disconnect must not drop the event.
		notifyCtx := context.WithoutCancel(ctx)
		for _, n := range u.notifiers {
			nctx, cancel := context.WithTimeout(notifyCtx, u.timeout)
			if err := n.Notify(nctx, evt); err != nil {
				logger.GetLogger().WithField("message_id", id).WithField("error", err).Warn("Delivery notifier failed")
			}
			cancel()
		}
	}
	return nil
}

// ListChannels serves from the channel cache when possible. Cache failures fall through to Slack.
func (u *messageUsecase) ListChannels(ctx context.Context, workspaceID string) ([]model.Channel, error) {
	if workspaceID == "" {
		return nil, model.NewValidationError("missing required fields: workspaceId")
	}
	if u.cache != nil {
		channels, ok, err := u.cache.GetChannels(ctx, workspaceID)
		switch {
		case err != nil:
			logger.GetLogger().WithField("workspace_id", workspaceID).WithField("error", err).Warn("Channel cache unavailable")
		case ok:
			return channels, nil
		}
	}

	token, err := u.creds.GetValidCredential(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	listCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	channels, err := u.lister.ListChannels(listCtx, token)
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		if err := u.cache.SetChannels(ctx, workspaceID, channels); err != nil {
			logger.GetLogger().WithField("workspace_id", workspaceID).WithField("error", err).Warn("Failed to cache channels")
		}
	}
	return channels, nil
}

func (u *messageUsecase) History(ctx context.Context, id int64) ([]model.DeliveryEvent, error) {
	if _, err := u.messages.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, &model.StoreError{Operation: "get scheduled message", Err: err}
	}
	if u.audit == nil {
		return []model.DeliveryEvent{}, nil
	}
	return u.audit.ListByMessage(ctx, id)
}

// missingFields lists empty values in a stable order.
func missingFields(fields map[string]string) string {
	order := []string{"workspaceId", "channelId", "channelName", "message"}
	var missing []string
	for _, name := range order {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	return strings.Join(missing, ", ")
}
