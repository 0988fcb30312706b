package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ragchat-backend/internal/handlers"
	"github.com/yungbote/ragchat-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	ChatHandler    *handlers.ChatHandler
	FileHandler    *handlers.FileHandler
	AllowOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	allowOrigins := cfg.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Chat
	api.POST("/chat", cfg.ChatHandler.Respond)
	api.GET("/chats", cfg.ChatHandler.ListChats)
	api.POST("/chats", cfg.ChatHandler.CreateChat)
	api.GET("/chats/:chatId", cfg.ChatHandler.GetChat)
	api.PATCH("/chats/:chatId", cfg.ChatHandler.RenameChat)
	api.DELETE("/chats/:chatId", cfg.ChatHandler.DeleteChat)
	api.GET("/chats/:chatId/messages", cfg.ChatHandler.ListMessages)

	// Files
	api.POST("/files/upload", cfg.FileHandler.Upload)
	api.POST("/files/ocr", cfg.FileHandler.SubmitOCR)
	api.DELETE("/files", cfg.FileHandler.Delete)
	api.GET("/files", cfg.FileHandler.Get)

	return router
}
