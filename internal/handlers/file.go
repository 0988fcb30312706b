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

type FileHandler struct {
	log         *logger.Logger
	fileService services.FileService
}

func NewFileHandler(log *logger.Logger, fileService services.FileService) *FileHandler {
	return &FileHandler{
		log:         log.With("handler", "FileHandler"),
		fileService: fileService,
	}
}

type fileView struct {
	ID            string    `json:"id"`
	ChatID        string    `json:"chatId,omitempty"`
	FileName      string    `json:"fileName"`
	FileType      string    `json:"fileType"`
	FileSize      int64     `json:"fileSize"`
	URL           string    `json:"url"`
	Status        string    `json:"status"`
	ExtractedText string    `json:"extractedText,omitempty"`
	ChunkCount    int       `json:"chunkCount,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toFileView(f *types.File) fileView {
	v := fileView{
		ID:            f.ID.String(),
		FileName:      f.FileName,
		FileType:      f.FileType,
		FileSize:      f.FileSize,
		URL:           f.StorageURL,
		Status:        f.Status,
		ExtractedText: f.ExtractedText,
		ChunkCount:    f.ChunkCount,
		Error:         f.Error,
		CreatedAt:     f.CreatedAt,
	}
	if f.ChatID != nil {
		v.ChatID = f.ChatID.String()
	}
	return v
}

// POST /api/files/upload
func (h *FileHandler) Upload(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("no file provided: %w", err))
		return
	}

	var chatID *uuid.UUID
	if raw := c.PostForm("chatId"); raw != "" {
		parsed, pErr := uuid.Parse(raw)
		if pErr != nil {
			RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid chatId: %w", pErr))
			return
		}
		chatID = &parsed
	}

	opened, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer opened.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	record, err := h.fileService.Upload(c.Request.Context(), rd.UserID, chatID, fileHeader.Filename, contentType, fileHeader.Size, opened)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, gin.H{"success": true, "file": toFileView(record)})
}

type ocrRequest struct {
	FileID        string         `json:"fileId"`
	ExtractedText string         `json:"extractedText"`
	Metadata      map[string]any `json:"metadata"`
}

// POST /api/files/ocr
func (h *FileHandler) SubmitOCR(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}
	var req ocrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid fileId: %w", err))
		return
	}
	if err := h.fileService.SubmitExtractedText(c.Request.Context(), rd.UserID, fileID, req.ExtractedText); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"success": true,
		"message": "Text processed and stored successfully",
		"fileId":  fileID.String(),
	})
}

type deleteFileRequest struct {
	FileID string `json:"fileId"`
}

// DELETE /api/files
func (h *FileHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}
	var req deleteFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid fileId: %w", err))
		return
	}
	result, err := h.fileService.Delete(c.Request.Context(), rd.UserID, fileID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	payload := gin.H{"success": true, "deletedCount": result.DeletedVectors}
	if result.Warning != "" {
		payload["warning"] = result.Warning
	}
	RespondOK(c, payload)
}

// GET /api/files?fileId=...|chatId=...
func (h *FileHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return
	}

	if raw := c.Query("fileId"); raw != "" {
		fileID, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid fileId: %w", err))
			return
		}
		record, err := h.fileService.Get(c.Request.Context(), rd.UserID, fileID)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		RespondOK(c, gin.H{"file": toFileView(record)})
		return
	}

	var (
		files []*types.File
		err   error
	)
	if raw := c.Query("chatId"); raw != "" {
		chatID, pErr := uuid.Parse(raw)
		if pErr != nil {
			RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid chatId: %w", pErr))
			return
		}
		files, err = h.fileService.ListByChat(c.Request.Context(), rd.UserID, chatID)
	} else {
		files, err = h.fileService.ListByUser(c.Request.Context(), rd.UserID)
	}
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	views := make([]fileView, 0, len(files))
	for _, f := range files {
		views = append(views, toFileView(f))
	}
	RespondOK(c, gin.H{"files": views})
}
