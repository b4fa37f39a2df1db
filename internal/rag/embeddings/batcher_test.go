package embeddings

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"HealthAgent/internal/rag/schema"
	"HealthAgent/pkg/logger"
)

const testDim = 4

// fakeModel records every EmbedBatch call and can fail selected calls.
type fakeModel struct {
	calls     [][]string
	failCalls map[int]error // call index -> error
	dim       int
}

func (f *fakeModel) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	call := len(f.calls)
	f.calls = append(f.calls, texts)
	if err, ok := f.failCalls[call]; ok {
		return nil, err
	}
	dim := f.dim
	if dim == 0 {
		dim = testDim
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, dim)
	}
	return out, nil
}

func makeSegments(n int) []*schema.Segment {
	segs := make([]*schema.Segment, n)
	for i := range segs {
		segs[i] = &schema.Segment{ID: fmt.Sprintf("seg-%d", i), Index: i, Text: fmt.Sprintf("text %d", i)}
	}
	return segs
}

func TestEmbedSegmentsBatchCounts(t *testing.T) {
	tests := []struct {
		n         int
		wantCalls int
	}{
		{0, 0},
		{1, 1},
		{9, 1},
		{10, 1},
		{11, 2},
		{25, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			model := &fakeModel{}
			b := NewBatcher(model, testDim, logger.New("test", "", ""))

			result, err := b.EmbedSegments(context.Background(), makeSegments(tt.n))
			if err != nil {
				t.Fatalf("EmbedSegments() error = %v", err)
			}
			if len(model.calls) != tt.wantCalls {
				t.Errorf("issued %d calls, want %d", len(model.calls), tt.wantCalls)
			}
			if len(result.Embedded) != tt.n {
				t.Errorf("embedded %d segments, want %d", len(result.Embedded), tt.n)
			}
			// Original order must be preserved across batch boundaries.
			for i, seg := range result.Embedded {
				if seg.Index != i {
					t.Fatalf("segment at position %d has index %d", i, seg.Index)
				}
				if seg.Embedding == nil {
					t.Fatalf("segment %d missing embedding", i)
				}
			}
			// No call may carry more than the API limit.
			for i, call := range model.calls {
				if len(call) > MaxBatchSize {
					t.Errorf("call %d carried %d texts, limit is %d", i, len(call), MaxBatchSize)
				}
			}
		})
	}
}

func TestEmbedSegmentsPartialFailure(t *testing.T) {
	batchErr := errors.New("upstream unavailable")
	model := &fakeModel{failCalls: map[int]error{1: batchErr}}
	b := NewBatcher(model, testDim, logger.New("test", "", ""))

	// 25 segments: calls 0,1,2; the middle batch (segments 10..19) fails.
	result, err := b.EmbedSegments(context.Background(), makeSegments(25))
	if err != nil {
		t.Fatalf("EmbedSegments() error = %v", err)
	}

	if len(result.Embedded) != 15 {
		t.Errorf("embedded %d, want 15", len(result.Embedded))
	}
	if len(result.Failed) != 10 {
		t.Fatalf("failed %d, want 10", len(result.Failed))
	}
	for _, f := range result.Failed {
		if f.Segment.Index < 10 || f.Segment.Index > 19 {
			t.Errorf("unexpected failed segment index %d", f.Segment.Index)
		}
		if !errors.Is(f.Err, batchErr) {
			t.Errorf("failure does not carry batch error: %v", f.Err)
		}
	}
}

func TestEmbedSegmentsDimensionMismatch(t *testing.T) {
	model := &fakeModel{dim: 8}
	b := NewBatcher(model, testDim, logger.New("test", "", ""))

	_, err := b.EmbedSegments(context.Background(), makeSegments(3))
	var mismatch *ErrDimensionMismatch
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if mismatch.Want != testDim || mismatch.Got != 8 {
		t.Errorf("unexpected mismatch detail: %+v", mismatch)
	}
}

func TestEmbedQuerySingleCall(t *testing.T) {
	model := &fakeModel{}
	b := NewBatcher(model, testDim, logger.New("test", "", ""))

	vec, err := b.EmbedQuery(context.Background(), "高血压饮食建议")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != testDim {
		t.Errorf("query vector has dim %d, want %d", len(vec), testDim)
	}
	if len(model.calls) != 1 || len(model.calls[0]) != 1 {
		t.Errorf("expected exactly one single-item call, got %v", model.calls)
	}
}
