package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/repos"
	"github.com/yungbote/ragchat-backend/internal/requestdata"
	"github.com/yungbote/ragchat-backend/internal/types"
)

// AuthService verifies bearer tokens minted by the external auth provider
// and resolves them to a local user record, creating the record on first
// sight.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type jwtClaims struct {
	Email     string `json:"email"`
	FirstName string `json:"given_name"`
	LastName  string `json:"family_name"`
	AvatarURL string `json:"picture"`
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
}

func NewAuthService(log *logger.Logger, userRepo repos.UserRepo, jwtSecretKey string) (AuthService, error) {
	if strings.TrimSpace(jwtSecretKey) == "" {
		return nil, fmt.Errorf("missing JWT secret key")
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
	}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("%w: failed to parse token: %v", ErrUnauthorized, err)
	}
	claims, ok := parsedToken.Claims.(*jwtClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return ctx, fmt.Errorf("%w: token missing subject", ErrUnauthorized)
	}

	user, err := as.userRepo.GetByExternalAuthID(ctx, nil, claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		user = &types.User{
			ExternalAuthID: claims.Subject,
			Email:          strings.ToLower(strings.TrimSpace(claims.Email)),
			FirstName:      claims.FirstName,
			LastName:       claims.LastName,
			AvatarURL:      claims.AvatarURL,
		}
		created, cErr := as.userRepo.Create(ctx, nil, []*types.User{user})
		if cErr != nil {
			return ctx, fmt.Errorf("failed to create user: %w", cErr)
		}
		user = created[0]
		as.log.Info("user created on first authentication", "user_id", user.ID, "email", user.Email)
	}

	rd := &requestdata.RequestData{
		TokenString:    tokenString,
		ExternalAuthID: claims.Subject,
		UserID:         user.ID,
		Email:          user.Email,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}
