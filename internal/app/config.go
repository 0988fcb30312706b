package app

import (
	"strings"

	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/utils"
)

type Config struct {
	Port         string
	JWTSecretKey string
	AllowOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	origins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log)
	var allowOrigins []string
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			allowOrigins = append(allowOrigins, trimmed)
		}
	}
	return Config{
		Port:         utils.GetEnv("PORT", "8080", log),
		JWTSecretKey: utils.GetEnv("JWT_SECRET_KEY", "", log),
		AllowOrigins: allowOrigins,
	}
}
