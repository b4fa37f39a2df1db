package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"HealthAgent/internal/database/milvus"
	"HealthAgent/internal/rag/interfaces"
	"HealthAgent/internal/rag/schema"
	"HealthAgent/pkg/logger"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// Schema fields for the Milvus collection.
	FieldID        = "id"
	FieldEmbedding = "embedding"
	FieldText      = "text"
	FieldDocPath   = "doc_path"
	FieldSegIndex  = "seg_index"
)

// StoreError indicates a vector store I/O failure. Segments covered by a
// failed upsert are NOT indexed and must be retried or explicitly dropped.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// MilvusStore is an adapter over the Milvus client implementing the
// VectorStore interface. One record is stored per non-reference segment;
// the segment text is stored inline so ask-time retrieval needs no second
// lookup.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	collection string
	dim        int
}

// NewMilvusStore creates a new MilvusStore adapter over the project's
// MilvusClient wrapper.
func NewMilvusStore(milvusClient *milvus.MilvusClient, dim int, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{
		log:        log,
		client:     milvusClient.Client,
		collection: milvusClient.Config.Schema.CollectionName,
		dim:        dim,
	}, nil
}

// Upsert writes embedded segments into the collection. It is idempotent by
// segment ID: existing records with the same primary key are deleted first,
// so re-upserting overwrites rather than duplicates.
func (s *MilvusStore) Upsert(ctx context.Context, segments []*schema.Segment) (int, error) {
	if len(segments) == 0 {
		return 0, nil
	}

	ids := make([]string, len(segments))
	texts := make([]string, len(segments))
	docPaths := make([]string, len(segments))
	segIndexes := make([]int64, len(segments))
	embeddings := make([][]float32, len(segments))

	for i, seg := range segments {
		if seg.Embedding == nil {
			return 0, &StoreError{Op: "upsert", Err: fmt.Errorf("segment %s has no embedding", seg.ID)}
		}
		ids[i] = seg.ID
		texts[i] = seg.Text
		docPaths[i] = seg.DocPath
		segIndexes[i] = int64(seg.Index)
		embeddings[i] = seg.Embedding
	}

	// Remove any records with the same IDs so the insert acts as an overwrite.
	expr := fmt.Sprintf(`%s in [%s]`, FieldID, quoteList(ids))
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return 0, &StoreError{Op: "upsert", Err: err}
	}

	idCol := entity.NewColumnVarChar(FieldID, ids)
	textCol := entity.NewColumnVarChar(FieldText, texts)
	docPathCol := entity.NewColumnVarChar(FieldDocPath, docPaths)
	segIndexCol := entity.NewColumnInt64(FieldSegIndex, segIndexes)
	embeddingCol := entity.NewColumnFloatVector(FieldEmbedding, s.dim, embeddings)

	s.log.Info(fmt.Sprintf("Inserting %d records into Milvus collection: %s", len(segments), s.collection))
	if _, err := s.client.Insert(ctx, s.collection, "" /* default partition */, idCol, textCol, docPathCol, segIndexCol, embeddingCol); err != nil {
		return 0, &StoreError{Op: "upsert", Err: err}
	}

	return len(segments), nil
}

// Query performs a vector search and returns at most topK passages ordered by
// decreasing similarity. Ties fall back to the store's insertion order, which
// is accepted nondeterminism.
func (s *MilvusStore) Query(ctx context.Context, embedding []float32, topK int) ([]*schema.Passage, error) {
	searchParams, _ := entity.NewIndexIvfFlatSearchParam(10)
	outputFields := []string{FieldID, FieldText, FieldDocPath, FieldSegIndex}

	searchResults, err := s.client.Search(
		ctx, s.collection, []string{}, "", outputFields,
		[]entity.Vector{entity.FloatVector(embedding)},
		FieldEmbedding, entity.L2, topK, searchParams,
	)
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}

	var passages []*schema.Passage
	for _, res := range searchResults {
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		textCol, ok := findColumn(FieldText).(*entity.ColumnVarChar)
		if !ok {
			s.log.Warn("Search result is missing text field or has wrong type, skipping.")
			continue
		}
		textData := textCol.Data()

		var docPathData []string
		if col, ok := findColumn(FieldDocPath).(*entity.ColumnVarChar); ok {
			docPathData = col.Data()
		}
		var segIndexData []int64
		if col, ok := findColumn(FieldSegIndex).(*entity.ColumnInt64); ok {
			segIndexData = col.Data()
		}

		for i := 0; i < res.ResultCount; i++ {
			p := &schema.Passage{
				Text:  textData[i],
				Score: res.Scores[i],
				Metadata: map[string]interface{}{
					schema.MetadataKeyScore: res.Scores[i],
				},
			}
			if docPathData != nil {
				p.Metadata[FieldDocPath] = docPathData[i]
			}
			if segIndexData != nil {
				p.Metadata[FieldSegIndex] = segIndexData[i]
			}
			passages = append(passages, p)
		}
	}

	return passages, nil
}

// quoteList renders string IDs as a Milvus expression list: "a","b","c".
func quoteList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return strings.Join(quoted, ",")
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
