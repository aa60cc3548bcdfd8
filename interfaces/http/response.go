package http

import (
	"errors"
	"fmt"
	"net/http"

	"slack-connect/domain/model"
	"slack-connect/domain/repository"
	"slack-connect/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors to a status code. fallback is the message used for
// provider and internal failures, e.g. "Failed to send message".
func respondError(ctx *gin.Context, err error, fallback string) {
	var (
		authErr     *model.AuthError
		providerErr *model.ProviderError
	)
	switch {
	case errors.Is(err, model.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotConnected):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Workspace not connected"})
	case errors.As(err, &authErr):
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Slack authorization expired, reconnect the workspace"})
	case errors.As(err, &providerErr):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %s", fallback, providerErr.Code)})
	case errors.Is(err, model.ErrMessageAlreadyResolved):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Scheduled message not found or already sent"})
	case errors.Is(err, repository.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		logger.GetLogger().WithField("path", ctx.FullPath()).WithField("error", err).Error(fallback)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
