package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/ragchat-backend/internal/clients/gcp"
	"github.com/yungbote/ragchat-backend/internal/ingestion"
	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/repos"
	"github.com/yungbote/ragchat-backend/internal/types"
)

const uploadKeyPrefix = "chat_uploads"

// FileDeleteResult reports a best-effort cleanup: the record is always gone,
// the vector count and warning describe how far index cleanup got.
type FileDeleteResult struct {
	DeletedVectors int
	Warning        string
}

type FileService interface {
	// Upload stores the blob, creates the file record and kicks off detached
	// ingestion. The returned record's status is what the client should show:
	// `processing` for documents, `uploaded` for images awaiting client OCR.
	Upload(ctx context.Context, userID uuid.UUID, chatID *uuid.UUID, fileName string, fileType string, fileSize int64, content io.Reader) (*types.File, error)
	// SubmitExtractedText is the client-OCR entry point; it runs ingestion
	// synchronously so the caller sees the outcome.
	SubmitExtractedText(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, extractedText string) error
	Delete(ctx context.Context, userID uuid.UUID, fileID uuid.UUID) (*FileDeleteResult, error)
	Get(ctx context.Context, userID uuid.UUID, fileID uuid.UUID) (*types.File, error)
	ListByChat(ctx context.Context, userID uuid.UUID, chatID uuid.UUID) ([]*types.File, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.File, error)
}

type fileService struct {
	log      *logger.Logger
	fileRepo repos.FileRepo
	bucket   gcp.BucketService
	pipeline ingestion.Pipeline
	docIndex DocumentIndexService
}

func NewFileService(
	log *logger.Logger,
	fileRepo repos.FileRepo,
	bucket gcp.BucketService,
	pipeline ingestion.Pipeline,
	docIndex DocumentIndexService,
) FileService {
	return &fileService{
		log:      log.With("service", "FileService"),
		fileRepo: fileRepo,
		bucket:   bucket,
		pipeline: pipeline,
		docIndex: docIndex,
	}
}

func (fs *fileService) Upload(ctx context.Context, userID uuid.UUID, chatID *uuid.UUID, fileName string, fileType string, fileSize int64, content io.Reader) (*types.File, error) {
	fileName = sanitizeFileName(fileName)
	if fileName == "" {
		return nil, fmt.Errorf("%w: file name required", ErrInvalidInput)
	}
	if content == nil {
		return nil, fmt.Errorf("%w: no file provided", ErrInvalidInput)
	}

	storageKey := fmt.Sprintf("%s/%s/%s", uploadKeyPrefix, uuid.New().String(), fileName)
	if err := fs.bucket.UploadFile(ctx, storageKey, content); err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	record := &types.File{
		UserID:     userID,
		ChatID:     chatID,
		FileName:   fileName,
		FileType:   fileType,
		FileSize:   fileSize,
		StorageURL: fs.bucket.GetPublicURL(storageKey),
		StorageKey: storageKey,
		Status:     types.FileStatusUploading,
	}
	created, err := fs.fileRepo.Create(ctx, nil, []*types.File{record})
	if err != nil {
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}
	record = created[0]

	if strings.HasPrefix(strings.ToLower(fileType), "image/") {
		// Images wait for the client to send OCR text before ingestion.
		ok, tErr := fs.fileRepo.TransitionStatus(ctx, nil, record.ID,
			[]string{types.FileStatusUploading}, types.FileStatusUploaded)
		if tErr != nil {
			return nil, fmt.Errorf("failed to mark file uploaded: %w", tErr)
		}
		if ok {
			record.Status = types.FileStatusUploaded
		}
		return record, nil
	}

	fs.pipeline.IngestAsync(record.ID, userID)
	// The record row still says `uploading`; the worker flips it. Report the
	// in-flight state the client should poll against.
	record.Status = types.FileStatusProcessing
	return record, nil
}

func (fs *fileService) SubmitExtractedText(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, extractedText string) error {
	if strings.TrimSpace(extractedText) == "" {
		return fmt.Errorf("%w: extractedText required", ErrInvalidInput)
	}
	record, err := fs.fileRepo.GetByID(ctx, nil, fileID, userID)
	if err != nil {
		return fmt.Errorf("failed to load file: %w", err)
	}
	if record == nil {
		return fmt.Errorf("%w: file", ErrNotFound)
	}
	return fs.pipeline.IngestExtracted(ctx, fileID, userID, extractedText)
}

func (fs *fileService) Delete(ctx context.Context, userID uuid.UUID, fileID uuid.UUID) (*FileDeleteResult, error) {
	record, err := fs.fileRepo.GetByID(ctx, nil, fileID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: file", ErrNotFound)
	}

	result := &FileDeleteResult{}
	if record.Status == types.FileStatusCompleted || record.ChunkCount > 0 {
		cleanup := fs.docIndex.DeleteFileVectors(ctx, userID, fileID, record.ChunkCount)
		result.DeletedVectors = cleanup.DeletedCount
		result.Warning = cleanup.Warning
	}

	if record.StorageKey != "" {
		if bErr := fs.bucket.DeleteFile(ctx, record.StorageKey); bErr != nil {
			fs.log.Warn("blob deletion failed", "file_id", fileID, "key", record.StorageKey, "error", bErr.Error())
		}
	}

	deleted, err := fs.fileRepo.Delete(ctx, nil, fileID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete file record: %w", err)
	}
	if !deleted {
		return nil, fmt.Errorf("%w: file", ErrNotFound)
	}
	return result, nil
}

func (fs *fileService) Get(ctx context.Context, userID uuid.UUID, fileID uuid.UUID) (*types.File, error) {
	record, err := fs.fileRepo.GetByID(ctx, nil, fileID, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: file", ErrNotFound)
	}
	return record, nil
}

func (fs *fileService) ListByChat(ctx context.Context, userID uuid.UUID, chatID uuid.UUID) ([]*types.File, error) {
	return fs.fileRepo.ListByChatID(ctx, nil, chatID, userID)
}

func (fs *fileService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.File, error) {
	return fs.fileRepo.ListByUserID(ctx, nil, userID)
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
