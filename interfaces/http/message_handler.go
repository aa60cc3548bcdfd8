package http

import (
	"errors"
	"net/http"
	"strconv"

	"slack-connect/domain/dto"
	"slack-connect/domain/model"
	"slack-connect/domain/repository"
	"slack-connect/infrastructure/logger"
	"slack-connect/usecase"

	"github.com/gin-gonic/gin"
)

type IMessageHandler interface {
	ListChannels(ctx *gin.Context)
	Send(ctx *gin.Context)
	Schedule(ctx *gin.Context)
	ListScheduled(ctx *gin.Context)
	Cancel(ctx *gin.Context)
	Events(ctx *gin.Context)
	RunScheduler(ctx *gin.Context)
}

type messageHandler struct {
	messageUsecase usecase.IMessageUsecase
	scheduler      usecase.IDeliveryScheduler
}

func NewMessageHandler(messageUsecase usecase.IMessageUsecase, scheduler usecase.IDeliveryScheduler) IMessageHandler {
	return &messageHandler{messageUsecase: messageUsecase, scheduler: scheduler}
}

func (h *messageHandler) ListChannels(ctx *gin.Context) {
	channels, err := h.messageUsecase.ListChannels(ctx.Request.Context(), ctx.Param("workspaceId"))
	if err != nil {
		respondError(ctx, err, "Failed to fetch channels")
		return
	}
	if channels == nil {
		channels = []model.Channel{}
	}
	ctx.JSON(http.StatusOK, gin.H{"channels": channels})
}

func (h *messageHandler) Send(ctx *gin.Context) {
	var req dto.SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.messageUsecase.SendNow(ctx.Request.Context(), req); err != nil {
		respondError(ctx, err, "Failed to send message")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Message sent successfully"})
}

func (h *messageHandler) Schedule(ctx *gin.Context) {
	var req dto.ScheduleMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Debug("Invalid schedule request body")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	msg, err := h.messageUsecase.Schedule(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err, "Failed to schedule message")
		return
	}
	ctx.JSON(http.StatusOK, dto.ScheduleMessageResponse{
		Success: true,
		Message: "Message scheduled successfully",
		ID:      msg.ID,
	})
}

func (h *messageHandler) ListScheduled(ctx *gin.Context) {
	list, err := h.messageUsecase.ListPending(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, "Failed to fetch scheduled messages")
		return
	}
	if list == nil {
		list = []model.ScheduledMessage{}
	}
	ctx.JSON(http.StatusOK, gin.H{"messages": list})
}

func (h *messageHandler) Cancel(ctx *gin.Context) {
	id, ok := messageID(ctx)
	if !ok {
		return
	}
	if err := h.messageUsecase.Cancel(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err, "Failed to cancel message")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Message cancelled successfully"})
}

// Events returns the recorded delivery history of one scheduled message.
func (h *messageHandler) Events(ctx *gin.Context) {
	id, ok := messageID(ctx)
	if !ok {
		return
	}
	events, err := h.messageUsecase.History(ctx.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Scheduled message not found"})
		return
	}
	if err != nil {
		respondError(ctx, err, "Failed to fetch delivery events")
		return
	}
	if events == nil {
		events = []model.DeliveryEvent{}
	}
	ctx.JSON(http.StatusOK, gin.H{"events": events})
}

// RunScheduler runs one dispatch tick synchronously.
func (h *messageHandler) RunScheduler(ctx *gin.Context) {
	report, err := h.scheduler.RunOnce(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, "Failed to run scheduler")
		return
	}
	status := http.StatusOK
	if report.Skipped {
		status = http.StatusConflict
	}
	ctx.JSON(status, report)
}

func messageID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return 0, false
	}
	return id, true
}
