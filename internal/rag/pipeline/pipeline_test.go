package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"HealthAgent/internal/rag/embeddings"
	"HealthAgent/internal/rag/schema"
	"HealthAgent/internal/rag/splitters"
	"HealthAgent/pkg/logger"
)

type stubModel struct {
	dim  int
	fail bool
}

func (m *stubModel) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *stubModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.fail {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, m.dim)
	}
	return out, nil
}

type memStore struct {
	segments []*schema.Segment
	passages []*schema.Passage
}

func (s *memStore) Upsert(ctx context.Context, segments []*schema.Segment) (int, error) {
	s.segments = append(s.segments, segments...)
	return len(segments), nil
}

func (s *memStore) Query(ctx context.Context, embedding []float32, topK int) ([]*schema.Passage, error) {
	if topK < len(s.passages) {
		return s.passages[:topK], nil
	}
	return s.passages, nil
}

func testLogger() *logger.Logger {
	logger.Init(logger.ParseLevel("error"))
	return logger.New("pipeline_test", "", "")
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunFileIndexesNonReferenceSegments(t *testing.T) {
	content := "高血压患者应当坚持低盐饮食，每日食盐摄入量控制在五克以内。\n\n" +
		"规律的有氧运动有助于控制血压，建议每周运动三到五次。\n\n" +
		"参考文献: 王等 (2020). 高血压管理指南. doi:10.1000/demo"
	path := writeTempFile(t, "hypertension.txt", content)

	store := &memStore{}
	batcher := embeddings.NewBatcher(&stubModel{dim: 4}, 4, testLogger())
	p := NewIndexingPipeline(splitters.NewStructureSplitter(400), batcher, store, "chinese", 2, testLogger())

	report, err := p.RunFile(context.Background(), path)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if report.Language != "chinese" {
		t.Errorf("Language = %q, want chinese", report.Language)
	}
	if report.ReferenceSegments == 0 {
		t.Error("expected the citation paragraph to be flagged as reference")
	}
	if report.Indexed != len(store.segments) {
		t.Errorf("Indexed = %d but store holds %d", report.Indexed, len(store.segments))
	}
	if report.Indexed+report.ReferenceSegments != report.TotalSegments {
		t.Errorf("indexed %d + reference %d != total %d",
			report.Indexed, report.ReferenceSegments, report.TotalSegments)
	}
	for _, seg := range store.segments {
		if seg.IsReference {
			t.Errorf("reference segment %q reached the store", seg.Text)
		}
		if len(seg.Embedding) != 4 {
			t.Errorf("segment stored without embedding")
		}
	}
}

func TestRunFileMissingPath(t *testing.T) {
	store := &memStore{}
	batcher := embeddings.NewBatcher(&stubModel{dim: 4}, 4, testLogger())
	p := NewIndexingPipeline(splitters.NewStructureSplitter(400), batcher, store, "chinese", 1, testLogger())

	if _, err := p.RunFile(context.Background(), "/no/such/file.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRunFileEmbeddingFailureReportsSegments(t *testing.T) {
	path := writeTempFile(t, "note.txt", "保持充足睡眠对身体恢复非常重要。")

	store := &memStore{}
	batcher := embeddings.NewBatcher(&stubModel{dim: 4, fail: true}, 4, testLogger())
	p := NewIndexingPipeline(splitters.NewStructureSplitter(400), batcher, store, "chinese", 1, testLogger())

	report, err := p.RunFile(context.Background(), path)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if len(report.FailedSegments) != report.TotalSegments {
		t.Errorf("FailedSegments = %d, want %d", len(report.FailedSegments), report.TotalSegments)
	}
	if len(store.segments) != 0 {
		t.Errorf("store should be empty after embedding failure, got %d", len(store.segments))
	}
}

func TestRetrieveValidatesTopK(t *testing.T) {
	batcher := embeddings.NewBatcher(&stubModel{dim: 4}, 4, testLogger())
	p := NewRetrievalPipeline(batcher, &memStore{}, testLogger())

	for _, k := range []int{0, -1} {
		if _, err := p.Retrieve(context.Background(), "什么是BMI", k); err == nil {
			t.Errorf("topK=%d: expected validation error", k)
		}
	}
}

func TestRetrieveReturnsFewerThanTopK(t *testing.T) {
	store := &memStore{passages: []*schema.Passage{
		{Text: "BMI是体重指数", Score: 0.1},
	}}
	batcher := embeddings.NewBatcher(&stubModel{dim: 4}, 4, testLogger())
	p := NewRetrievalPipeline(batcher, store, testLogger())

	passages, err := p.Retrieve(context.Background(), "什么是BMI", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(passages) != 1 {
		t.Errorf("got %d passages, want 1", len(passages))
	}
}
