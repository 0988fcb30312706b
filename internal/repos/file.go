package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/types"
)

type FileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, files []*types.File) ([]*types.File, error)
	// GetByID is owner scoped; returns (nil, nil) when missing or foreign.
	GetByID(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, userID uuid.UUID) (*types.File, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID, userID uuid.UUID) ([]*types.File, error)
	ListByChatID(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, userID uuid.UUID) ([]*types.File, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.File, error)
	// TransitionStatus is a compare-and-swap on status: it succeeds only when
	// the file is currently in one of fromStatuses, and reports whether the
	// write happened. This is what makes concurrent double-ingestion
	// impossible rather than merely unlikely.
	TransitionStatus(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, fromStatuses []string, toStatus string) (bool, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, extractedText string, namespace string, chunkCount int, metadata datatypes.JSON) error
	MarkFailed(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, cause string) error
	Delete(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, userID uuid.UUID) (bool, error)
}

type fileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileRepo(db *gorm.DB, baseLog *logger.Logger) FileRepo {
	return &fileRepo{db: db, log: baseLog.With("repo", "FileRepo")}
}

func (r *fileRepo) Create(ctx context.Context, tx *gorm.DB, files []*types.File) ([]*types.File, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(files) == 0 {
		return []*types.File{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *fileRepo) GetByID(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, userID uuid.UUID) (*types.File, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var file types.File
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", fileID, userID).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepo) GetByIDs(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID, userID uuid.UUID) ([]*types.File, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.File
	if len(fileIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ? AND user_id = ?", fileIDs, userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fileRepo) ListByChatID(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, userID uuid.UUID) ([]*types.File, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.File
	if err := transaction.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fileRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.File, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.File
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fileRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, fromStatuses []string, toStatus string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.File{}).
		Where("id = ? AND status IN ?", fileID, fromStatuses).
		Updates(map[string]any{"status": toStatus, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *fileRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, extractedText string, namespace string, chunkCount int, metadata datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]any{
		"status":           types.FileStatusCompleted,
		"extracted_text":   extractedText,
		"vector_namespace": namespace,
		"chunk_count":      chunkCount,
		"error":            "",
		"updated_at":       time.Now().UTC(),
	}
	if len(metadata) > 0 {
		updates["metadata"] = metadata
	}
	return transaction.WithContext(ctx).
		Model(&types.File{}).
		Where("id = ?", fileID).
		Updates(updates).Error
}

func (r *fileRepo) MarkFailed(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, cause string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.File{}).
		Where("id = ?", fileID).
		Updates(map[string]any{
			"status":     types.FileStatusFailed,
			"error":      cause,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *fileRepo) Delete(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, userID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", fileID, userID).
		Delete(&types.File{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
