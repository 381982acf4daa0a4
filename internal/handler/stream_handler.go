package handler

import (
	"io"
	"net/http"

	"chatline/backend/internal/auth"
	"chatline/backend/internal/chat"
	"chatline/backend/internal/hub"

	"github.com/gin-gonic/gin"
)

// StreamHandler attaches SSE sessions to the hub. Authentication
// happened once in the middleware; membership is checked here before
// the session is subscribed, so the hub itself can stay a pure fan-out
// registry.
type StreamHandler struct {
	Hub  *hub.Hub
	Chat *chat.Service
}

// clientBuffer bounds how far a slow consumer may lag before the
// non-blocking broadcast starts dropping events for it.
const clientBuffer = 16

// Stream godoc
// @Summary      Join a room's real-time event stream
// @Description  Server-sent events with one "message" event per newly stored chat message. Missed events are recovered via the history endpoint.
// @Tags         chat
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{id}/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	member, err := h.Chat.IsMember(roomID, viewerID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this room"})
		return
	}

	client := make(hub.Client, clientBuffer)
	h.Hub.Subscribe(roomID, client)
	defer h.Hub.Unsubscribe(roomID, client)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case data, open := <-client:
			if !open {
				return false
			}
			c.SSEvent("message", string(data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
