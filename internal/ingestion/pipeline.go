package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/ragchat-backend/internal/chat/index"
	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/repos"
	"github.com/yungbote/ragchat-backend/internal/types"
)

const asyncIngestTimeout = 10 * time.Minute

// ChunkIndexer stores a file's text chunks in the vector index and reports
// how many vectors were written.
type ChunkIndexer interface {
	StoreFileChunks(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, fileName string, fileType string, chunks []string) (int, error)
}

// Pipeline drives a file through extraction, chunking and indexing, moving
// its status uploading -> processing -> completed/failed as it goes.
type Pipeline interface {
	Ingest(ctx context.Context, fileID uuid.UUID, userID uuid.UUID) error
	IngestExtracted(ctx context.Context, fileID uuid.UUID, userID uuid.UUID, extractedText string) error
	IngestAsync(fileID uuid.UUID, userID uuid.UUID)
	IngestExtractedAsync(fileID uuid.UUID, userID uuid.UUID, extractedText string)
}

type pipeline struct {
	log       *logger.Logger
	files     repos.FileRepo
	extractor Extractor
	splitter  *Splitter
	indexer   ChunkIndexer
}

func NewPipeline(log *logger.Logger, files repos.FileRepo, ex Extractor, indexer ChunkIndexer) Pipeline {
	return &pipeline{
		log:       log.With("service", "IngestionPipeline"),
		files:     files,
		extractor: ex,
		splitter:  NewSplitter(),
		indexer:   indexer,
	}
}

func (p *pipeline) Ingest(ctx context.Context, fileID uuid.UUID, userID uuid.UUID) error {
	ok, err := p.files.TransitionStatus(ctx, nil, fileID,
		[]string{types.FileStatusUploading, types.FileStatusUploaded},
		types.FileStatusProcessing,
	)
	if err != nil {
		return err
	}
	if !ok {
		// Another worker already claimed it, or it is already terminal.
		p.log.Info("ingestion skipped, file not in a startable status", "file_id", fileID)
		return nil
	}

	file, err := p.files.GetByID(ctx, nil, fileID, userID)
	if err != nil {
		return err
	}
	if file == nil {
		return p.fail(ctx, fileID, errFileGone)
	}

	text, err := p.extractor.ExtractText(ctx, file.StorageURL, file.FileType)
	if err != nil {
		p.log.Error("text extraction failed", "file_id", fileID, "file_type", file.FileType, "error", err.Error())
		return p.fail(ctx, fileID, err)
	}

	return p.finish(ctx, file, text)
}

// IngestExtracted indexes text the client already extracted (image OCR).
func (p *pipeline) IngestExtracted(ctx context.Context, fileID uuid.UUID, userID uuid.UUID, extractedText string) error {
	ok, err := p.files.TransitionStatus(ctx, nil, fileID,
		[]string{types.FileStatusUploading, types.FileStatusUploaded},
		types.FileStatusProcessing,
	)
	if err != nil {
		return err
	}
	if !ok {
		p.log.Info("ocr ingestion skipped, file not in a startable status", "file_id", fileID)
		return nil
	}

	file, err := p.files.GetByID(ctx, nil, fileID, userID)
	if err != nil {
		return err
	}
	if file == nil {
		return p.fail(ctx, fileID, errFileGone)
	}

	return p.finish(ctx, file, extractedText)
}

func (p *pipeline) IngestAsync(fileID uuid.UUID, userID uuid.UUID) {
	go func() {
		defer p.recoverIngestPanic(fileID)
		ctx, cancel := context.WithTimeout(context.Background(), asyncIngestTimeout)
		defer cancel()
		if err := p.Ingest(ctx, fileID, userID); err != nil {
			p.log.Error("background ingestion failed", "file_id", fileID, "error", err.Error())
		}
	}()
}

func (p *pipeline) IngestExtractedAsync(fileID uuid.UUID, userID uuid.UUID, extractedText string) {
	go func() {
		defer p.recoverIngestPanic(fileID)
		ctx, cancel := context.WithTimeout(context.Background(), asyncIngestTimeout)
		defer cancel()
		if err := p.IngestExtracted(ctx, fileID, userID, extractedText); err != nil {
			p.log.Error("background ocr ingestion failed", "file_id", fileID, "error", err.Error())
		}
	}()
}

// recoverIngestPanic keeps a malformed upload from taking the process down;
// parser panics are recorded on the file like any other ingestion failure.
func (p *pipeline) recoverIngestPanic(fileID uuid.UUID) {
	r := recover()
	if r == nil {
		return
	}
	p.log.Error("ingestion panicked", "file_id", fileID, "panic", fmt.Sprint(r))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.files.MarkFailed(ctx, nil, fileID, fmt.Sprintf("ingestion panic: %v", r)); err != nil {
		p.log.Error("failed to mark file failed after panic", "file_id", fileID, "error", err.Error())
	}
}

func (p *pipeline) finish(ctx context.Context, file *types.File, text string) error {
	namespace := index.UserNamespace(file.UserID)

	if strings.TrimSpace(text) == "" {
		// Scanned or empty documents complete with zero chunks so the client
		// is never stuck on a spinner.
		p.log.Warn("no extractable text found", "file_id", file.ID, "file_type", file.FileType)
		meta := mustJSON(map[string]any{"warning": "no extractable text found"})
		return p.files.MarkCompleted(ctx, nil, file.ID, "", namespace, 0, meta)
	}

	chunks := p.splitter.Split(text)

	count, err := p.indexer.StoreFileChunks(ctx, file.UserID, file.ID, file.FileName, file.FileType, chunks)
	if err != nil {
		p.log.Error("vector indexing failed", "file_id", file.ID, "chunks", len(chunks), "error", err.Error())
		return p.fail(ctx, file.ID, err)
	}

	preview := text
	if r := []rune(preview); len(r) > types.ExtractedTextPreviewLimit {
		preview = string(r[:types.ExtractedTextPreviewLimit])
	}

	meta := mustJSON(map[string]any{"chunk_count": count})
	if err := p.files.MarkCompleted(ctx, nil, file.ID, preview, namespace, count, meta); err != nil {
		return err
	}

	p.log.Info("file ingested", "file_id", file.ID, "chunks", count)
	return nil
}

var errFileGone = errors.New("file record disappeared during ingestion")

// fail records the cause on the file. A failing status write is logged but
// never masks the original error.
func (p *pipeline) fail(ctx context.Context, fileID uuid.UUID, cause error) error {
	if err := p.files.MarkFailed(ctx, nil, fileID, cause.Error()); err != nil {
		p.log.Error("failed to mark file failed", "file_id", fileID, "error", err.Error())
	}
	return cause
}

func mustJSON(v map[string]any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
