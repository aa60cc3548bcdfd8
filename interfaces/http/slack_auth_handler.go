package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"slack-connect/domain/dto"
	"slack-connect/domain/model"
	"slack-connect/domain/repository"
	"slack-connect/infrastructure/logger"
	"slack-connect/usecase"

	"github.com/gin-gonic/gin"
)

const stateTTL = 10 * time.Minute

type ISlackAuthHandler interface {
	Authorize(ctx *gin.Context)
	Callback(ctx *gin.Context)
	ListWorkspaces(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
}

type slackAuthHandler struct {
	workspaceUsecase usecase.IWorkspaceUsecase
	frontendURL      string

	stateMu sync.Mutex
	states  map[string]time.Time // state -> expiry
	now     func() time.Time
}

func NewSlackAuthHandler(workspaceUsecase usecase.IWorkspaceUsecase, frontendURL string) ISlackAuthHandler {
	if frontendURL == "" {
		frontendURL = "/"
	}
	return &slackAuthHandler{
		workspaceUsecase: workspaceUsecase,
		frontendURL:      frontendURL,
		states:           map[string]time.Time{},
		now:              time.Now,
	}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Authorize redirects the browser to the Slack consent screen.
func (h *slackAuthHandler) Authorize(ctx *gin.Context) {
	state := randomState()
	h.stateMu.Lock()
	now := h.now()
	for s, exp := range h.states {
		if now.After(exp) {
			delete(h.states, s)
		}
	}
	h.states[state] = now.Add(stateTTL)
	h.stateMu.Unlock()

	ctx.Redirect(http.StatusFound, h.workspaceUsecase.AuthURL(state))
}

// consumeState reports whether state was issued by Authorize and has not expired.
func (h *slackAuthHandler) consumeState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return h.now().Before(exp)
}

func (h *slackAuthHandler) Callback(ctx *gin.Context) {
	if e := ctx.Query("error"); e != "" {
		logger.GetLogger().WithField("error", e).Warn("Slack OAuth authorization denied")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "OAuth authorization denied"})
		return
	}
	code := ctx.Query("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}
	if !h.consumeState(ctx.Query("state")) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OAuth state"})
		return
	}

	ws, err := h.workspaceUsecase.Connect(ctx.Request.Context(), code)
	if err != nil {
		var storeErr *model.StoreError
		var providerErr *model.ProviderError
		switch {
		case errors.As(err, &storeErr):
			logger.GetLogger().WithField("error", err).Error("Error storing tokens")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store tokens"})
		case errors.As(err, &providerErr):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to exchange authorization code for tokens"})
		default:
			logger.GetLogger().WithField("error", err).Error("OAuth process failed")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "OAuth process failed"})
		}
		return
	}

	ctx.Redirect(http.StatusFound, h.redirectTarget(ws.WorkspaceName))
}

func (h *slackAuthHandler) redirectTarget(workspaceName string) string {
	sep := "?"
	if strings.Contains(h.frontendURL, "?") {
		sep = "&"
	}
	return h.frontendURL + sep + "connected=true&workspace=" + url.QueryEscape(workspaceName)
}

func (h *slackAuthHandler) ListWorkspaces(ctx *gin.Context) {
	list, err := h.workspaceUsecase.ListWorkspaces(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, "Failed to fetch workspaces")
		return
	}
	if list == nil {
		list = []model.Workspace{}
	}
	ctx.JSON(http.StatusOK, dto.WorkspacesResponse{Workspaces: list})
}

func (h *slackAuthHandler) Disconnect(ctx *gin.Context) {
	err := h.workspaceUsecase.Disconnect(ctx.Request.Context(), ctx.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
		return
	}
	if err != nil {
		respondError(ctx, err, "Failed to disconnect workspace")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Workspace disconnected successfully"})
}
