package http

import (
	"context"
	"errors"
	"net/url"
	"time"

	"slack-connect/domain/dto"
	"slack-connect/domain/model"
	"slack-connect/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockWorkspaceUsecase struct {
	mock.Mock
}

func (m *MockWorkspaceUsecase) AuthURL(state string) string {
	return "https://slack.example/oauth/v2/authorize?state=" + url.QueryEscape(state)
}

func (m *MockWorkspaceUsecase) Connect(ctx context.Context, code string) (*model.Workspace, error) {
	args := m.Called(ctx, code)
	ws, _ := args.Get(0).(*model.Workspace)
	return ws, args.Error(1)
}

func (m *MockWorkspaceUsecase) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]model.Workspace)
	return list, args.Error(1)
}

func (m *MockWorkspaceUsecase) Disconnect(ctx context.Context, workspaceID string) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

type MockMessageUsecase struct {
	mock.Mock
}

func (m *MockMessageUsecase) SendNow(ctx context.Context, req dto.SendMessageRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockMessageUsecase) Schedule(ctx context.Context, req dto.ScheduleMessageRequest) (*model.ScheduledMessage, error) {
	args := m.Called(ctx, req)
	msg, _ := args.Get(0).(*model.ScheduledMessage)
	return msg, args.Error(1)
}

func (m *MockMessageUsecase) ListPending(ctx context.Context) ([]model.ScheduledMessage, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]model.ScheduledMessage)
	return list, args.Error(1)
}

func (m *MockMessageUsecase) Cancel(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMessageUsecase) ListChannels(ctx context.Context, workspaceID string) ([]model.Channel, error) {
	args := m.Called(ctx, workspaceID)
	list, _ := args.Get(0).([]model.Channel)
	return list, args.Error(1)
}

func (m *MockMessageUsecase) History(ctx context.Context, id int64) ([]model.DeliveryEvent, error) {
	args := m.Called(ctx, id)
	list, _ := args.Get(0).([]model.DeliveryEvent)
	return list, args.Error(1)
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Start(interval time.Duration) { m.Called(interval) }

func (m *MockScheduler) Stop() { m.Called() }

func (m *MockScheduler) RunOnce(ctx context.Context) (usecase.TickReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(usecase.TickReport), args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

var errBoom = errors.New("boom")
