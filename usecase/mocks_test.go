package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"slack-connect/domain/model"
	"slack-connect/infrastructure/persistence"
)

var fixedNow = time.Unix(1700000000, 0)

func clock() time.Time { return fixedNow }

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenGrant), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, accessToken, channelID, text string) error {
	args := m.Called(ctx, accessToken, channelID, text)
	return args.Error(0)
}

type MockChannelLister struct {
	mock.Mock
}

func (m *MockChannelLister) ListChannels(ctx context.Context, accessToken string) ([]model.Channel, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Channel), args.Error(1)
}

type MockChannelCache struct {
	mock.Mock
}

func (m *MockChannelCache) GetChannels(ctx context.Context, workspaceID string) ([]model.Channel, bool, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]model.Channel), args.Bool(1), args.Error(2)
}

func (m *MockChannelCache) SetChannels(ctx context.Context, workspaceID string, channels []model.Channel) error {
	args := m.Called(ctx, workspaceID, channels)
	return args.Error(0)
}

func (m *MockChannelCache) Invalidate(ctx context.Context, workspaceID string) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

type MockExchanger struct {
	mock.Mock
}

func (m *MockExchanger) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockExchanger) Exchange(ctx context.Context, code string) (*model.TokenGrant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenGrant), args.Error(1)
}

// recordingNotifier keeps every event it receives.
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.DeliveryEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, evt model.DeliveryEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return n.err
}

func (n *recordingNotifier) Events() []model.DeliveryEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.DeliveryEvent(nil), n.events...)
}

// contextNotifier captures the context state each Notify call sees.
type contextNotifier struct {
	mu          sync.Mutex
	hasDeadline []bool
	errs        []error
}

func (n *contextNotifier) Notify(ctx context.Context, _ model.DeliveryEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := ctx.Deadline()
	n.hasDeadline = append(n.hasDeadline, ok)
	n.errs = append(n.errs, ctx.Err())
	return nil
}

// failingCredentialStore fails every Upsert.
type failingCredentialStore struct {
	*persistence.MemoryCredentialRepository
}

func (f *failingCredentialStore) Upsert(context.Context, *model.Credential) error {
	return errors.New("disk full")
}

// flakyMessageStore fails SetStatus for the listed ids.
type flakyMessageStore struct {
	*persistence.MemoryScheduledMessageRepository
	failIDs map[int64]bool
	findErr error
}

func (f *flakyMessageStore) SetStatus(ctx context.Context, id int64, from, to model.MessageStatus) (int64, error) {
	if f.failIDs[id] {
		return 0, errors.New("deadlock detected")
	}
	return f.MemoryScheduledMessageRepository.SetStatus(ctx, id, from, to)
}

func (f *flakyMessageStore) FindDue(ctx context.Context, now int64) ([]model.ScheduledMessage, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.MemoryScheduledMessageRepository.FindDue(ctx, now)
}

func int64Ptr(v int64) *int64 { return &v }

func seedCredential(store *persistence.MemoryCredentialRepository, ws, access, refresh string, expiresAt *int64) {
	_ = store.Upsert(context.Background(), &model.Credential{
		WorkspaceID:   ws,
		WorkspaceName: ws + " workspace",
		AccessToken:   access,
		RefreshToken:  refresh,
		ExpiresAt:     expiresAt,
		CreatedAt:     fixedNow.Unix() - 3600,
		UpdatedAt:     fixedNow.Unix() - 3600,
	})
}
