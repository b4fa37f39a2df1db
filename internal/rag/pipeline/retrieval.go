package pipeline

import (
	"context"
	"fmt"

	"HealthAgent/internal/rag/embeddings"
	"HealthAgent/internal/rag/interfaces"
	"HealthAgent/internal/rag/schema"
	"HealthAgent/pkg/logger"
)

// RetrievalPipeline turns a user query into ranked knowledge passages.
type RetrievalPipeline struct {
	batcher     *embeddings.Batcher
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

func NewRetrievalPipeline(batcher *embeddings.Batcher, vectorStore interfaces.VectorStore, log *logger.Logger) *RetrievalPipeline {
	return &RetrievalPipeline{
		batcher:     batcher,
		vectorStore: vectorStore,
		log:         log,
	}
}

// Retrieve embeds the query and returns up to topK passages ordered by
// similarity. Fewer than topK results is normal when the store is small.
func (p *RetrievalPipeline) Retrieve(ctx context.Context, query string, topK int) ([]*schema.Passage, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("invalid topK %d: must be positive", topK)
	}
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	embedding, err := p.batcher.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	passages, err := p.vectorStore.Query(ctx, embedding, topK)
	if err != nil {
		return nil, err
	}

	p.log.Info(fmt.Sprintf("Retrieved %d passages for query (topK=%d)", len(passages), topK))
	return passages, nil
}
