package interfaces

import (
	"context"

	"HealthAgent/internal/rag/schema"
)

// Loader is the interface for loading data from a source (e.g., file, URL)
// and converting it into a list of Document objects.
type Loader interface {
	Load(ctx context.Context, path string) ([]*schema.Document, error)
}

// Splitter is the interface for splitting parsed Documents into Segments.
type Splitter interface {
	Split(ctx context.Context, docs []*schema.Document) ([]*schema.Segment, error)
}

// VectorStore is the interface for storing and querying segment vectors.
type VectorStore interface {
	// Upsert writes embedded segments, overwriting records with the same ID.
	// It returns the number of records written.
	Upsert(ctx context.Context, segments []*schema.Segment) (int, error)
	// Query returns at most topK passages ordered by decreasing similarity.
	Query(ctx context.Context, embedding []float32, topK int) ([]*schema.Passage, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
