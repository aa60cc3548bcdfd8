package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"slack-connect/domain/model"
)

// Hub fans delivery events out to SSE subscribers of each workspace.
type Hub struct {
	mu         sync.RWMutex
	workspaces map[string]map[chan model.DeliveryEvent]struct{}
}

func NewDeliveryHub() *Hub {
	return &Hub{workspaces: make(map[string]map[chan model.DeliveryEvent]struct{})}
}

// Serve registers an SSE stream for ?workspace_id=.
func (h *Hub) Serve(c *gin.Context) {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workspace_id is required"})
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan model.DeliveryEvent, 8)
	h.addSubscriber(workspaceID, ch)
	defer h.removeSubscriber(workspaceID, ch)

	// Initial comment to keep connection open
	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: " + model.DeliveryEventType + "\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *Hub) addSubscriber(workspaceID string, ch chan model.DeliveryEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.workspaces[workspaceID] == nil {
		h.workspaces[workspaceID] = make(map[chan model.DeliveryEvent]struct{})
	}
	h.workspaces[workspaceID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(workspaceID string, ch chan model.DeliveryEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.workspaces[workspaceID]; subs != nil {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.workspaces, workspaceID)
		}
	}
}

// Notify broadcasts evt to the workspace's subscribers. Slow subscribers miss events.
func (h *Hub) Notify(_ context.Context, evt model.DeliveryEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.workspaces[evt.WorkspaceID] {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (h *Hub) subscriberCount(workspaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.workspaces[workspaceID])
}
