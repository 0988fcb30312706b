package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/types"
)

type ChatRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chats []*types.Chat) ([]*types.Chat, error)
	// GetByID is owner scoped; it returns (nil, nil) when the chat does not
	// exist or belongs to a different user.
	GetByID(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, userID uuid.UUID) (*types.Chat, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Chat, error)
	UpdateTitle(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, userID uuid.UUID, title string) (*types.Chat, error)
	TouchUpdatedAt(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) error
	// Delete removes the chat and all of its messages.
	Delete(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, userID uuid.UUID) (bool, error)
}

type chatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRepo(db *gorm.DB, baseLog *logger.Logger) ChatRepo {
	return &chatRepo{db: db, log: baseLog.With("repo", "ChatRepo")}
}

func (r *chatRepo) Create(ctx context.Context, tx *gorm.DB, chats []*types.Chat) ([]*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(chats) == 0 {
		return []*types.Chat{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepo) GetByID(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, userID uuid.UUID) (*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var chat types.Chat
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", chatID, userID).
		First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Chat
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chatRepo) UpdateTitle(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, userID uuid.UUID, title string) (*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Chat{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Updates(map[string]any{"title": title, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, tx, chatID, userID)
}

func (r *chatRepo) TouchUpdatedAt(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Chat{}).
		Where("id = ?", chatID).
		Update("updated_at", time.Now().UTC()).Error
}

func (r *chatRepo) Delete(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, userID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	deleted := false
	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		res := inner.Where("id = ? AND user_id = ?", chatID, userID).Delete(&types.Chat{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Missing or foreign chat: touch nothing else.
			return nil
		}
		deleted = true
		return inner.Where("chat_id = ?", chatID).Delete(&types.Message{}).Error
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
