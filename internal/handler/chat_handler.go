package handler

import (
	"net/http"
	"strconv"
	"time"

	"chatline/backend/internal/auth"
	"chatline/backend/internal/chat"
	"chatline/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// SendMessageInput carries one outgoing chat message.
type SendMessageInput struct {
	Message string `json:"message" binding:"required" example:"hi"`
}

// ConversationResponse is the result of a conversation request.
type ConversationResponse struct {
	RoomID  uint `json:"room_id" example:"7"`
	Created bool `json:"created" example:"true"`
}

// MessageResponse is one message of a room's history.
type MessageResponse struct {
	ID        uint      `json:"id"`
	RoomID    uint      `json:"room_id"`
	SenderID  uint      `json:"sender_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
	IsRead    bool      `json:"is_read"`
}

func newMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:        message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		Username:  message.Sender.Username,
		AvatarURL: message.Sender.AvatarURL,
		Body:      message.Body,
		SentAt:    message.SentAt,
		IsRead:    message.IsRead,
	}
}

// endregion

// ChatHandler serves the conversation-admission and messaging surface.
type ChatHandler struct {
	Chat *chat.Service
}

func roomIDParam(c *gin.Context) (uint, bool) {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return 0, false
	}
	return uint(roomID), true
}

func userIDParam(c *gin.Context) (uint, bool) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return uint(userID), true
}

// StartConversation godoc
// @Summary      Request a conversation with a user
// @Description  Returns the direct room shared with the target, creating it on first contact.
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Target User ID"
// @Success      200  {object}  ConversationResponse "Existing room"
// @Success      201  {object}  ConversationResponse "Newly created room"
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Target does not accept your messages"
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Creation could not complete, safe to retry"
// @Router       /users/{id}/conversation [post]
func (h *ChatHandler) StartConversation(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)
	targetID, ok := userIDParam(c)
	if !ok {
		return
	}

	roomID, created, err := h.Chat.RequestConversation(viewerID, targetID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, ConversationResponse{RoomID: roomID, Created: created})
}

// AcceptUser godoc
// @Summary      Accept a conversation request
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Requesting User ID"
// @Success      200  {object}  ConversationResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id}/accept [post]
func (h *ChatHandler) AcceptUser(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)
	otherID, ok := userIDParam(c)
	if !ok {
		return
	}

	roomID, err := h.Chat.RespondToRequest(viewerID, otherID, chat.DecisionAccept)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ConversationResponse{RoomID: roomID})
}

// DeclineUser godoc
// @Summary      Decline a conversation request and mark the sender as spam
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Requesting User ID"
// @Success      200  {object}  map[string]string "{"message": "Request declined"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id}/decline [post]
func (h *ChatHandler) DeclineUser(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)
	otherID, ok := userIDParam(c)
	if !ok {
		return
	}

	if _, err := h.Chat.RespondToRequest(viewerID, otherID, chat.DecisionDecline); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request declined"})
}

// PendingRequests godoc
// @Summary      List users waiting for a conversation answer
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   PublicUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/requests [get]
func (h *ChatHandler) PendingRequests(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)

	users, err := h.Chat.ListPendingRequests(viewerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, publicUsers(users))
}

// SpamChats godoc
// @Summary      List users marked as spam
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   PublicUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/spam [get]
func (h *ChatHandler) SpamChats(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)

	users, err := h.Chat.ListSpam(viewerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, publicUsers(users))
}

// DirectChats godoc
// @Summary      List conversation partners
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   PublicUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/chats [get]
func (h *ChatHandler) DirectChats(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)

	users, err := h.Chat.DirectChats(viewerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, publicUsers(users))
}

// UnreadCounts godoc
// @Summary      Per-sender unread message counts
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]int64 "sender id -> unread count"
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/unread [get]
func (h *ChatHandler) UnreadCounts(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)

	counts, err := h.Chat.UnreadCounts(viewerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

// SendMessage godoc
// @Summary      Send a message into a room
// @Description  Persists the message, then broadcasts it to the room's subscribers.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int              true "Room ID"
// @Param        input body SendMessageInput true "Message"
// @Success      201  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Sender is not a room member"
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.Chat.AppendMessage(roomID, viewerID, input.Message)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newMessageResponse(*message))
}

// ChatHistory godoc
// @Summary      Fetch a room's full message history
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {array}   MessageResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{id}/messages [get]
func (h *ChatHandler) ChatHistory(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	messages, err := h.Chat.FetchHistory(roomID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	responses := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, newMessageResponse(message))
	}

	c.JSON(http.StatusOK, responses)
}

// MarkMessagesRead godoc
// @Summary      Mark a room's messages as read
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  ErrorResponse
// @Router       /rooms/{id}/read [post]
func (h *ChatHandler) MarkMessagesRead(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	if err := h.Chat.MarkRead(roomID, viewerID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Messages marked as read"})
}

// RoomMembers godoc
// @Summary      List a room's members
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {array}   PublicUserResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{id}/members [get]
func (h *ChatHandler) RoomMembers(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	users, err := h.Chat.RoomMembers(roomID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, publicUsers(users))
}

func publicUsers(users []models.User) []PublicUserResponse {
	responses := make([]PublicUserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, newPublicUserResponse(user))
	}
	return responses
}
