package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"slack-connect/domain/model"
	"slack-connect/infrastructure/metrics"
	"slack-connect/infrastructure/persistence"
	"slack-connect/infrastructure/realtime"
	"slack-connect/infrastructure/utils"
	httpHandler "slack-connect/interfaces/http"
	"slack-connect/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlack struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSlack) Send(_ context.Context, token, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, token+"|"+channelID+"|"+text)
	return nil
}

func (f *fakeSlack) ListChannels(context.Context, string) ([]model.Channel, error) {
	return []model.Channel{{ID: "C1", Name: "general"}}, nil
}

func (f *fakeSlack) Refresh(context.Context, string) (*model.TokenGrant, error) {
	return nil, fmt.Errorf("unexpected refresh")
}

func (f *fakeSlack) AuthCodeURL(state string) string { return "https://slack.example/authorize?state=" + state }

func (f *fakeSlack) Exchange(context.Context, string) (*model.TokenGrant, error) {
	return &model.TokenGrant{AccessToken: "xoxb", WorkspaceID: "T1", WorkspaceName: "Acme"}, nil
}

type testApp struct {
	router *gin.Engine
	slack  *fakeSlack
}

func newTestApp(t *testing.T, secretKey string) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	creds := persistence.NewMemoryCredentialRepository()
	expiresAt := time.Now().Add(24 * time.Hour).Unix()
	require.NoError(t, creds.Upsert(context.Background(), &model.Credential{
		WorkspaceID:   "T1",
		WorkspaceName: "Acme",
		AccessToken:   "xoxb-live",
		ExpiresAt:     &expiresAt,
	}))
	messages := persistence.NewMemoryScheduledMessageRepository()
	slack := &fakeSlack{}
	mt := metrics.NewMetrics("slack_connect")
	hub := realtime.NewDeliveryHub()

	manager := usecase.NewCredentialManager(creds, slack, usecase.WithCredentialMetrics(mt))
	scheduler := usecase.NewDeliveryScheduler(messages, manager, slack, usecase.WithNotifiers(hub), usecase.WithSchedulerMetrics(mt))
	messageUC := usecase.NewMessageUsecase(messages, manager, slack, slack, usecase.WithCancelNotifiers(hub))
	workspaceUC := usecase.NewWorkspaceUsecase(creds, slack, nil)

	router := InitiateRouter(
		RouterConfig{AllowOrigins: []string{"http://localhost:5173"}, SecretKey: secretKey},
		httpHandler.NewSlackAuthHandler(workspaceUC, "/"),
		httpHandler.NewMessageHandler(messageUC, scheduler),
		httpHandler.NewHealthHandler(nil),
		hub,
		mt,
	)
	return &testApp{router: router, slack: slack}
}

func (a *testApp) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	a.router.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	app := newTestApp(t, "")

	w := app.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `slack_connect_http_requests_total{endpoint="/healthz",method="GET",status="200"} 1`)
}

func TestRouter_ScheduleListCancel(t *testing.T) {
	app := newTestApp(t, "")
	at := time.Now().Add(time.Hour).Unix()

	w := app.do(http.MethodPost, "/api/messages/schedule",
		fmt.Sprintf(`{"workspaceId":"T1","channelId":"C1","channelName":"general","message":"later","scheduledTime":%d}`, at))
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, int64(1), created.ID)

	w = app.do(http.MethodGet, "/api/messages/scheduled", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Messages []model.ScheduledMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Messages, 1)
	assert.Equal(t, at, listed.Messages[0].ScheduledTime)

	// Not due yet.
	w = app.do(http.MethodPost, "/api/messages/scheduler/run", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"skipped":false,"due":0,"sent":0,"failed":0,"unchanged":0}`, w.Body.String())

	w = app.do(http.MethodDelete, "/api/messages/scheduled/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = app.do(http.MethodDelete, "/api/messages/scheduled/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodGet, "/api/messages/scheduled", "")
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}

func TestRouter_SendNowUsesStoredToken(t *testing.T) {
	app := newTestApp(t, "")

	w := app.do(http.MethodPost, "/api/messages/send", `{"workspaceId":"T1","channelId":"C1","message":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"xoxb-live|C1|hi"}, app.slack.sent)

	w = app.do(http.MethodPost, "/api/messages/send", `{"workspaceId":"T9","channelId":"C1","message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_MessagesRequireTokenWhenSecretSet(t *testing.T) {
	app := newTestApp(t, "s3cret")

	w := app.do(http.MethodGet, "/api/messages/scheduled", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_WorkspaceManagementRequiresTokenWhenSecretSet(t *testing.T) {
	app := newTestApp(t, "s3cret")

	w := app.do(http.MethodGet, "/api/auth/workspaces", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodDelete, "/api/auth/workspace/T1", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The credential is still there for an authorised caller.
	token, err := utils.GenerateToken("ops", time.Hour, "s3cret")
	require.NoError(t, err)
	w = app.do(http.MethodGet, "/api/auth/workspaces", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"workspaces":[{"workspace_id":"T1","workspace_name":"Acme"}]}`, w.Body.String())

	w = app.do(http.MethodDelete, "/api/auth/workspace/T1", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_OAuthRedirectStaysOpenWhenSecretSet(t *testing.T) {
	app := newTestApp(t, "s3cret")

	w := app.do(http.MethodGet, "/api/auth/slack", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "https://slack.example/authorize?state=")
}

func TestRouter_StreamRequiresWorkspace(t *testing.T) {
	app := newTestApp(t, "")

	w := app.do(http.MethodGet, "/api/messages/stream", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	app := newTestApp(t, "")

	w := app.do(http.MethodOptions, "/api/messages/send", "",
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", "POST")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
