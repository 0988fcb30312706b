package app

import (
	"github.com/yungbote/ragchat-backend/internal/handlers"
	"github.com/yungbote/ragchat-backend/internal/logger"
)

type Handlers struct {
	Chat *handlers.ChatHandler
	File *handlers.FileHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	return Handlers{
		Chat: handlers.NewChatHandler(log, s.Chat),
		File: handlers.NewFileHandler(log, s.File),
	}
}
