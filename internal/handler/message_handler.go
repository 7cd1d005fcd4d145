package handler

import (
	"net/http"

	"whispr/internal/services"
	"whispr/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	messages *services.MessageService
	users    *services.UserService
}

func NewMessageHandler(messages *services.MessageService, users *services.UserService) *MessageHandler {
	return &MessageHandler{messages: messages, users: users}
}

// Contacts lists every user except the caller, with presence flags.
func (h *MessageHandler) Contacts(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	users, err := h.users.Contacts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(users))
}

// Chats lists the caller's chat partners with unread counts.
func (h *MessageHandler) Chats(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	partners, err := h.messages.ListChatPartners(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(partners))
}

func (h *MessageHandler) Conversation(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	peerID, err := uuid.Parse(c.Param("peerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid peer id", "INVALID_REQUEST"))
		return
	}
	items, err := h.messages.ListConversation(c.Request.Context(), userID, peerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(items))
}

func (h *MessageHandler) Pinned(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	peerID, err := uuid.Parse(c.Param("peerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid peer id", "INVALID_REQUEST"))
		return
	}
	items, err := h.messages.ListPinned(c.Request.Context(), userID, peerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(items))
}

func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	peerID, err := uuid.Parse(c.Param("peerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid peer id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	m, err := h.messages.Send(c.Request.Context(), userID, peerID, req.Text, req.Image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(m))
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	peerID, err := uuid.Parse(c.Param("peerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid peer id", "INVALID_REQUEST"))
		return
	}
	updated, err := h.messages.MarkRead(c.Request.Context(), userID, peerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MarkReadResponse{Updated: updated}))
}

func (h *MessageHandler) Pin(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	m, err := h.messages.Pin(c.Request.Context(), userID, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(m))
}

func (h *MessageHandler) Unpin(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	m, err := h.messages.Unpin(c.Request.Context(), userID, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(m))
}

func (h *MessageHandler) DeleteForEveryone(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	if err := h.messages.DeleteForEveryone(c.Request.Context(), userID, messageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *MessageHandler) DeleteForMe(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	if err := h.messages.DeleteForMe(c.Request.Context(), userID, messageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func actor(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return uuid.Nil, false
	}
	return userID, true
}
