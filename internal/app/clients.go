package app

import (
	"context"
	"fmt"

	"github.com/yungbote/ragchat-backend/internal/clients/gcp"
	"github.com/yungbote/ragchat-backend/internal/clients/mem0"
	"github.com/yungbote/ragchat-backend/internal/clients/openai"
	"github.com/yungbote/ragchat-backend/internal/clients/pinecone"
	"github.com/yungbote/ragchat-backend/internal/logger"
)

type Clients struct {
	AI          openai.Client
	Memory      mem0.Client
	VectorStore pinecone.VectorStore
	Bucket      gcp.BucketService
}

func wireClients(ctx context.Context, log *logger.Logger) (Clients, error) {
	ai, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	memory, err := mem0.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init mem0 client: %w", err)
	}
	vectorStore, err := pinecone.NewVectorStoreFromEnv(ctx, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init pinecone vector store: %w", err)
	}
	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket service: %w", err)
	}
	return Clients{
		AI:          ai,
		Memory:      memory,
		VectorStore: vectorStore,
		Bucket:      bucket,
	}, nil
}
