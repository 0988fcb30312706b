package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/ragchat-backend/internal/chat/index"
	"github.com/yungbote/ragchat-backend/internal/clients/openai"
	"github.com/yungbote/ragchat-backend/internal/clients/pinecone"
	"github.com/yungbote/ragchat-backend/internal/logger"
)

const (
	embedBatchSize       = 100
	embedConcurrency     = 4
	retrievalTopK        = 5
	deleteGuessMaxChunks = 500
)

// DocumentMatch is one retrieved chunk with its source file attribution.
type DocumentMatch struct {
	FileID     string
	FileName   string
	ChunkIndex int
	Text       string
	Score      float64
}

type DeleteResult struct {
	DeletedCount int
	Warning      string
}

// DocumentIndexService owns the per-user document vectors: writing chunks at
// ingestion time, retrieving them at chat time, and clearing them when a
// file is deleted.
type DocumentIndexService interface {
	StoreFileChunks(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, fileName string, fileType string, chunks []string) (int, error)
	QueryDocuments(ctx context.Context, userID uuid.UUID, query string, fileIDs []uuid.UUID) ([]DocumentMatch, error)
	DeleteFileVectors(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, chunkCount int) DeleteResult
}

type documentIndexService struct {
	log   *logger.Logger
	ai    openai.Client
	store pinecone.VectorStore
}

func NewDocumentIndexService(log *logger.Logger, ai openai.Client, store pinecone.VectorStore) DocumentIndexService {
	return &documentIndexService{
		log:   log.With("service", "DocumentIndexService"),
		ai:    ai,
		store: store,
	}
}

func chunkVectorID(fileID uuid.UUID, i int) string {
	return fmt.Sprintf("%s-chunk-%d", fileID.String(), i)
}

func chunkIDPrefix(fileID uuid.UUID) string {
	return fmt.Sprintf("%s-chunk-", fileID.String())
}

func (s *documentIndexService) StoreFileChunks(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, fileName string, fileType string, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	embeddings, err := s.embedAll(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	vectors := make([]pinecone.Vector, len(chunks))
	for i, chunk := range chunks {
		vectors[i] = pinecone.Vector{
			ID:     chunkVectorID(fileID, i),
			Values: embeddings[i],
			Metadata: map[string]any{
				"text":        chunk,
				"fileId":      fileID.String(),
				"userId":      userID.String(),
				"chunkIndex":  i,
				"totalChunks": len(chunks),
				"fileName":    fileName,
				"fileType":    fileType,
			},
		}
	}

	namespace := index.UserNamespace(userID)
	if _, err := s.store.Upsert(ctx, namespace, vectors); err != nil {
		return 0, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	s.log.Info("file chunks indexed", "file_id", fileID, "namespace", namespace, "chunks", len(chunks))
	return len(chunks), nil
}

// embedAll batches the embedding calls and runs batches concurrently,
// keeping results index-aligned with the input.
func (s *documentIndexService) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end
		g.Go(func() error {
			vecs, err := s.ai.Embed(gctx, chunks[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedding batch size mismatch: want %d got %d", end-start, len(vecs))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *documentIndexService) QueryDocuments(ctx context.Context, userID uuid.UUID, query string, fileIDs []uuid.UUID) ([]DocumentMatch, error) {
	vecs, err := s.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var filter map[string]any
	if len(fileIDs) > 0 {
		ids := make([]string, len(fileIDs))
		for i, id := range fileIDs {
			ids[i] = id.String()
		}
		filter = map[string]any{"fileId": map[string]any{"$in": ids}}
	}

	namespace := index.UserNamespace(userID)
	matches, err := s.store.QueryMatches(ctx, namespace, vecs[0], retrievalTopK, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	out := make([]DocumentMatch, 0, len(matches))
	for _, m := range matches {
		dm := DocumentMatch{Score: m.Score}
		if v, ok := m.Metadata["fileId"].(string); ok {
			dm.FileID = v
		}
		if v, ok := m.Metadata["fileName"].(string); ok {
			dm.FileName = v
		}
		if v, ok := m.Metadata["chunkIndex"].(float64); ok {
			dm.ChunkIndex = int(v)
		}
		if v, ok := m.Metadata["text"].(string); ok {
			dm.Text = v
		}
		if dm.Text == "" {
			continue
		}
		out = append(out, dm)
	}
	return out, nil
}

// DeleteFileVectors clears a file's vectors and never fails the caller:
// vector cleanup problems degrade to a warning so record deletion can
// proceed.
func (s *documentIndexService) DeleteFileVectors(ctx context.Context, userID uuid.UUID, fileID uuid.UUID, chunkCount int) DeleteResult {
	namespace := index.UserNamespace(userID)

	var ids []string
	guessed := false
	if chunkCount > 0 {
		ids = make([]string, chunkCount)
		for i := 0; i < chunkCount; i++ {
			ids[i] = chunkVectorID(fileID, i)
		}
	} else {
		listed, err := s.store.ListIDs(ctx, namespace, chunkIDPrefix(fileID))
		if err != nil {
			s.log.Warn("vector id listing failed, guessing id range", "file_id", fileID, "error", err.Error())
			guessed = true
			ids = make([]string, deleteGuessMaxChunks)
			for i := 0; i < deleteGuessMaxChunks; i++ {
				ids[i] = chunkVectorID(fileID, i)
			}
		} else {
			ids = listed
		}
	}

	if len(ids) == 0 {
		return DeleteResult{DeletedCount: 0}
	}

	if err := s.store.DeleteIDs(ctx, namespace, ids); err != nil {
		s.log.Warn("vector deletion failed", "file_id", fileID, "namespace", namespace, "error", err.Error())
		return DeleteResult{
			DeletedCount: 0,
			Warning:      "file record deleted but some vectors may remain in the index",
		}
	}

	if guessed {
		// The guessed range is a blind sweep; the real vector count is unknown.
		return DeleteResult{
			DeletedCount: 0,
			Warning:      "vector count unknown; cleared a guessed id range",
		}
	}
	return DeleteResult{DeletedCount: len(ids)}
}
