package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slack-connect/domain/dto"
	"slack-connect/domain/model"
	"slack-connect/domain/repository"
	"slack-connect/infrastructure/persistence"
	"slack-connect/usecase"
)

type messageFixture struct {
	creds    *persistence.MemoryCredentialRepository
	messages *persistence.MemoryScheduledMessageRepository
	sender   *MockSender
	lister   *MockChannelLister
	cache    *MockChannelCache
	notifier *recordingNotifier
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		creds:    persistence.NewMemoryCredentialRepository(),
		messages: persistence.NewMemoryScheduledMessageRepository(),
		sender:   new(MockSender),
		lister:   new(MockChannelLister),
		cache:    new(MockChannelCache),
		notifier: &recordingNotifier{},
	}
	seedCredential(f.creds, "T1", "xoxb-1", "", nil)
	return f
}

func (f *messageFixture) usecase() usecase.IMessageUsecase {
	mgr := usecase.NewCredentialManager(f.creds, new(MockRefresher), usecase.WithClock(clock))
	return usecase.NewMessageUsecase(f.messages, mgr, f.sender, f.lister,
		usecase.WithChannelCache(f.cache),
		usecase.WithCancelNotifiers(f.notifier),
		usecase.WithMessageClock(clock),
	)
}

func TestMessageUsecase_Schedule(t *testing.T) {
	valid := dto.ScheduleMessageRequest{
		WorkspaceID:   "T1",
		ChannelID:     "C1",
		ChannelName:   "general",
		Message:       "standup in 5",
		ScheduledTime: dto.Timestamp(fixedNow.Unix() + 3600),
	}

	tests := []struct {
		name    string
		mutate  func(r *dto.ScheduleMessageRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(*dto.ScheduleMessageRequest) {}},
		{name: "missing channel name", mutate: func(r *dto.ScheduleMessageRequest) { r.ChannelName = "" }, wantErr: "channelName"},
		{name: "missing time", mutate: func(r *dto.ScheduleMessageRequest) { r.ScheduledTime = 0 }, wantErr: "scheduledTime"},
		{name: "now is not the future", mutate: func(r *dto.ScheduleMessageRequest) { r.ScheduledTime = dto.Timestamp(fixedNow.Unix()) }, wantErr: "future"},
		{name: "past", mutate: func(r *dto.ScheduleMessageRequest) { r.ScheduledTime = dto.Timestamp(fixedNow.Unix() - 1) }, wantErr: "future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMessageFixture()
			req := valid
			tt.mutate(&req)

			msg, err := f.usecase().Schedule(context.Background(), req)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, model.ErrValidation)
				assert.Contains(t, err.Error(), tt.wantErr)
				pending, _ := f.messages.ListPending(context.Background())
				assert.Empty(t, pending)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, msg.ID)
			assert.Equal(t, model.StatusPending, msg.Status)
			assert.Equal(t, fixedNow.Unix(), msg.CreatedAt)

			pending, err := f.usecase().ListPending(context.Background())
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, "standup in 5", pending[0].Message)
		})
	}
}

func TestMessageUsecase_Cancel(t *testing.T) {
	f := newMessageFixture()
	f.messages.Seed(dueMessage(3, "T1", "C1", "pending", 600))
	sent := dueMessage(7, "T1", "C1", "gone", -600)
	sent.Status = model.StatusSent
	f.messages.Seed(sent)
	uc := f.usecase()

	require.NoError(t, uc.Cancel(context.Background(), 3))
	m, _ := f.messages.GetByID(context.Background(), 3)
	assert.Equal(t, model.StatusCancelled, m.Status)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.StatusCancelled, events[0].Status)
	assert.Equal(t, int64(3), events[0].MessageID)

	assert.ErrorIs(t, uc.Cancel(context.Background(), 3), model.ErrMessageAlreadyResolved)
	assert.ErrorIs(t, uc.Cancel(context.Background(), 7), model.ErrMessageAlreadyResolved)
	assert.ErrorIs(t, uc.Cancel(context.Background(), 404), model.ErrMessageAlreadyResolved)

	m, _ = f.messages.GetByID(context.Background(), 7)
	assert.Equal(t, model.StatusSent, m.Status)
	assert.Len(t, f.notifier.Events(), 1)
}

func TestMessageUsecase_CancelNotifiesWithBoundedDetachedContext(t *testing.T) {
	f := newMessageFixture()
	f.messages.Seed(dueMessage(4, "T1", "C1", "pending", 600))
	notifier := &contextNotifier{}
	mgr := usecase.NewCredentialManager(f.creds, new(MockRefresher), usecase.WithClock(clock))
	uc := usecase.NewMessageUsecase(f.messages, mgr, f.sender, f.lister,
		usecase.WithCancelNotifiers(notifier, f.notifier),
		usecase.WithMessageClock(clock),
		usecase.WithMessageTimeout(time.Second),
	)

	// The request goes away right after the cancel commits.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, uc.Cancel(ctx, 4))

	require.Equal(t, []bool{true}, notifier.hasDeadline)
	require.Equal(t, []error{nil}, notifier.errs)
	assert.Len(t, f.notifier.Events(), 1)
}

func TestMessageUsecase_SendNow(t *testing.T) {
	f := newMessageFixture()
	f.sender.On("Send", mock.Anything, "xoxb-1", "C1", "hello").Return(nil).Once()
	f.sender.On("Send", mock.Anything, "xoxb-1", "C404", "hello").Return(&model.ProviderError{Code: "channel_not_found"}).Once()
	uc := f.usecase()

	require.NoError(t, uc.SendNow(context.Background(), dto.SendMessageRequest{WorkspaceID: "T1", ChannelID: "C1", Message: "hello"}))

	err := uc.SendNow(context.Background(), dto.SendMessageRequest{WorkspaceID: "T1", ChannelID: "C404", Message: "hello"})
	var pe *model.ProviderError
	require.ErrorAs(t, err, &pe)

	err = uc.SendNow(context.Background(), dto.SendMessageRequest{WorkspaceID: "T9", ChannelID: "C1", Message: "hello"})
	require.ErrorIs(t, err, model.ErrNotConnected)

	err = uc.SendNow(context.Background(), dto.SendMessageRequest{WorkspaceID: "T1", ChannelID: " ", Message: ""})
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "channelId, message")
	f.sender.AssertExpectations(t)
}

func TestMessageUsecase_ListChannels(t *testing.T) {
	channels := []model.Channel{{ID: "C1", Name: "general"}, {ID: "G1", Name: "secret", IsPrivate: true}}

	t.Run("cache hit skips slack", func(t *testing.T) {
		f := newMessageFixture()
		f.cache.On("GetChannels", mock.Anything, "T1").Return(channels, true, nil).Once()

		got, err := f.usecase().ListChannels(context.Background(), "T1")
		require.NoError(t, err)
		assert.Equal(t, channels, got)
		f.lister.AssertNotCalled(t, "ListChannels", mock.Anything, mock.Anything)
	})

	t.Run("cache miss fills cache", func(t *testing.T) {
		f := newMessageFixture()
		f.cache.On("GetChannels", mock.Anything, "T1").Return(nil, false, nil).Once()
		f.lister.On("ListChannels", mock.Anything, "xoxb-1").Return(channels, nil).Once()
		f.cache.On("SetChannels", mock.Anything, "T1", channels).Return(nil).Once()

		got, err := f.usecase().ListChannels(context.Background(), "T1")
		require.NoError(t, err)
		assert.Equal(t, channels, got)
		f.cache.AssertExpectations(t)
		f.lister.AssertExpectations(t)
	})

	t.Run("cache outage falls through", func(t *testing.T) {
		f := newMessageFixture()
		f.cache.On("GetChannels", mock.Anything, "T1").Return(nil, false, errors.New("dial tcp: connection refused")).Once()
		f.lister.On("ListChannels", mock.Anything, "xoxb-1").Return(channels, nil).Once()
		f.cache.On("SetChannels", mock.Anything, "T1", channels).Return(errors.New("dial tcp: connection refused")).Once()

		got, err := f.usecase().ListChannels(context.Background(), "T1")
		require.NoError(t, err)
		assert.Equal(t, channels, got)
	})

	t.Run("not connected", func(t *testing.T) {
		f := newMessageFixture()
		f.cache.On("GetChannels", mock.Anything, "T9").Return(nil, false, nil).Once()

		_, err := f.usecase().ListChannels(context.Background(), "T9")
		require.ErrorIs(t, err, model.ErrNotConnected)
	})
}

func TestMessageUsecase_History(t *testing.T) {
	f := newMessageFixture()
	f.messages.Seed(dueMessage(1, "T1", "C1", "hi", 60))

	events, err := f.usecase().History(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = f.usecase().History(context.Background(), 99)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
