package pinecone

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/ragchat-backend/internal/logger"
)

const deleteBatchSize = 100

// VectorStore is the index-bound view of Pinecone the rest of the backend
// uses. The data-plane host is resolved once from the index name at
// construction.
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) (int64, error)
	QueryMatches(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]any) ([]QueryMatch, error)
	DeleteIDs(ctx context.Context, namespace string, ids []string) error
	ListIDs(ctx context.Context, namespace string, prefix string) ([]string, error)
}

type vectorStore struct {
	log       *logger.Logger
	client    Client
	indexName string
	host      string
}

func NewVectorStoreFromEnv(ctx context.Context, log *logger.Logger) (VectorStore, error) {
	apiKey := strings.TrimSpace(os.Getenv("PINECONE_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing PINECONE_API_KEY")
	}
	indexName := strings.TrimSpace(os.Getenv("PINECONE_INDEX_NAME"))
	if indexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}

	c, err := New(log, Config{APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	return NewVectorStore(ctx, log, c, indexName)
}

func NewVectorStore(ctx context.Context, log *logger.Logger, c Client, indexName string) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if c == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	desc, err := c.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("describe index %q: %w", indexName, err)
	}

	vs := &vectorStore{
		log:       log.With("client", "PineconeVectorStore"),
		client:    c,
		indexName: indexName,
		host:      desc.Host,
	}
	vs.log.Info("Pinecone index resolved", "index", indexName, "host", desc.Host, "dimension", desc.Dimension)
	return vs, nil
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []Vector) (int64, error) {
	if len(vectors) == 0 {
		return 0, nil
	}
	resp, err := s.client.UpsertVectors(ctx, s.host, UpsertRequest{
		Vectors:   vectors,
		Namespace: namespace,
	})
	if err != nil {
		return 0, err
	}
	return resp.UpsertedCount, nil
}

func (s *vectorStore) QueryMatches(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]any) ([]QueryMatch, error) {
	resp, err := s.client.Query(ctx, s.host, QueryRequest{
		Namespace:       namespace,
		Vector:          vector,
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// DeleteIDs removes vectors in batches. Missing ids are not an error.
func (s *vectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		if _, err := s.client.DeleteVectors(ctx, s.host, DeleteRequest{
			IDs:       ids[start:end],
			Namespace: namespace,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *vectorStore) ListIDs(ctx context.Context, namespace string, prefix string) ([]string, error) {
	var ids []string
	token := ""
	for {
		resp, err := s.client.ListVectorIDs(ctx, s.host, ListRequest{
			Namespace:       namespace,
			Prefix:          prefix,
			Limit:           100,
			PaginationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, v := range resp.Vectors {
			ids = append(ids, v.ID)
		}
		token = resp.Pagination.Next
		if token == "" {
			break
		}
	}
	return ids, nil
}
