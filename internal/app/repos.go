package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/repos"
)

type Repos struct {
	User    repos.UserRepo
	Chat    repos.ChatRepo
	Message repos.MessageRepo
	File    repos.FileRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		User:    repos.NewUserRepo(db, log),
		Chat:    repos.NewChatRepo(db, log),
		Message: repos.NewMessageRepo(db, log),
		File:    repos.NewFileRepo(db, log),
	}
}
