package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/ragchat-backend/internal/ingestion"
	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	Chat     services.ChatService
	File     services.FileService
	DocIndex services.DocumentIndexService
	Pipeline ingestion.Pipeline
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	auth, err := services.NewAuthService(log, r.User, cfg.JWTSecretKey)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	docIndex := services.NewDocumentIndexService(log, c.AI, c.VectorStore)
	extractor := ingestion.NewExtractor(log)
	pipeline := ingestion.NewPipeline(log, r.File, extractor, docIndex)

	chatService := services.NewChatService(db, log, r.Chat, r.Message, r.File, c.AI, c.Memory, docIndex)
	fileService := services.NewFileService(log, r.File, c.Bucket, pipeline, docIndex)

	return Services{
		Auth:     auth,
		Chat:     chatService,
		File:     fileService,
		DocIndex: docIndex,
		Pipeline: pipeline,
	}, nil
}
