package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/requestdata"
	"github.com/yungbote/ragchat-backend/internal/services"
	"github.com/yungbote/ragchat-backend/internal/types"
)

type ChatHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewChatHandler(log *logger.Logger, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		log:         log.With("handler", "ChatHandler"),
		chatService: chatService,
	}
}

type messageView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type chatView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toMessageView(m *types.Message) messageView {
	return messageView{
		ID:        m.ID.String(),
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toChatView(ch *types.Chat) chatView {
	return chatView{
		ID:        ch.ID.String(),
		Title:     ch.Title,
		CreatedAt: ch.CreatedAt,
		UpdatedAt: ch.UpdatedAt,
	}
}

type respondRequest struct {
	Messages []services.TurnMessage `json:"messages"`
	ChatID   string                 `json:"chatId"`
	FileIDs  []string               `json:"fileIds"`
}

// POST /api/chat
func (h *ChatHandler) Respond(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}

	var chatID *uuid.UUID
	if req.ChatID != "" {
		parsed, err := uuid.Parse(req.ChatID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid chatId: %w", err))
			return
		}
		chatID = &parsed
	}

	fileIDs := make([]uuid.UUID, 0, len(req.FileIDs))
	for _, raw := range req.FileIDs {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid fileId %q: %w", raw, err))
			return
		}
		fileIDs = append(fileIDs, parsed)
	}

	result, err := h.chatService.Respond(c.Request.Context(), rd.UserID, chatID, req.Messages, fileIDs)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	payload := gin.H{
		"message": toMessageView(result.Message),
		"chatId":  result.ChatID.String(),
	}
	if result.FilesProcessing {
		payload["filesProcessing"] = true
	}
	RespondOK(c, payload)
}

// GET /api/chats
func (h *ChatHandler) ListChats(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}
	chats, err := h.chatService.ListChats(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	views := make([]chatView, 0, len(chats))
	for _, ch := range chats {
		views = append(views, toChatView(ch))
	}
	RespondOK(c, gin.H{"chats": views})
}

type createChatRequest struct {
	Title string `json:"title"`
}

// POST /api/chats
func (h *ChatHandler) CreateChat(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	created, err := h.chatService.CreateChat(c.Request.Context(), rd.UserID, req.Title)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"chat": toChatView(created)})
}

// GET /api/chats/:chatId
func (h *ChatHandler) GetChat(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid chatId: %w", err))
		return
	}
	found, err := h.chatService.GetChat(c.Request.Context(), rd.UserID, chatID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"chat": toChatView(found)})
}

// GET /api/chats/:chatId/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid chatId: %w", err))
		return
	}
	messages, err := h.chatService.ListMessages(c.Request.Context(), rd.UserID, chatID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, toMessageView(m))
	}
	RespondOK(c, gin.H{"messages": views})
}

type renameChatRequest struct {
	Title string `json:"title"`
}

// PATCH /api/chats/:chatId
func (h *ChatHandler) RenameChat(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid chatId: %w", err))
		return
	}
	var req renameChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	updated, err := h.chatService.RenameChat(c.Request.Context(), rd.UserID, chatID, req.Title)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"chat": toChatView(updated)})
}

// DELETE /api/chats/:chatId
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid chatId: %w", err))
		return
	}
	if err := h.chatService.DeleteChat(c.Request.Context(), rd.UserID, chatID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
