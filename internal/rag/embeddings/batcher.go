package embeddings

import (
	"context"
	"fmt"

	"HealthAgent/internal/rag/interfaces"
	"HealthAgent/internal/rag/schema"
	"HealthAgent/pkg/logger"
)

// MaxBatchSize 是嵌入 API 单次调用接受的最大文本条数，由上游服务约束。
const MaxBatchSize = 10

// ErrDimensionMismatch 表示返回向量的维度与配置不一致。
// 这是配置错误，必须立即失败，绝不能静默截断。
type ErrDimensionMismatch struct {
	Want int
	Got  int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: collection expects %d, API returned %d", e.Want, e.Got)
}

// Failure 记录一个未能获得向量的分段及其原因，供调用方缩小范围重试。
type Failure struct {
	Segment *schema.Segment
	Err     error
}

// Result 是一次批量嵌入的结果：成功的分段（已挂载向量，保持原始顺序）
// 与失败的分段。一个批次的失败不会中止整个文档。
type Result struct {
	Embedded []*schema.Segment
	Failed   []Failure
}

// Batcher 将分段按 MaxBatchSize 分批提交给嵌入模型。
type Batcher struct {
	model      interfaces.EmbeddingModel
	dimensions int
	log        *logger.Logger
}

// NewBatcher 创建一个 Batcher。dimensions 必须与向量库集合的维度一致。
func NewBatcher(model interfaces.EmbeddingModel, dimensions int, log *logger.Logger) *Batcher {
	return &Batcher{model: model, dimensions: dimensions, log: log}
}

// EmbedSegments 为一组分段生成嵌入向量。
//
// 分段按出现顺序切成连续的 ≤10 条批次，每批一次 API 调用，结果按原始
// 顺序拼接。空输入返回空结果且不产生任何调用；最后一个不满 10 条的
// 批次同样会被处理。
//
// 某一批调用失败时，该批的分段进入 Failed 列表，其余批次继续。
// 只有维度不匹配（配置错误）会使整个操作立即失败。
func (b *Batcher) EmbedSegments(ctx context.Context, segments []*schema.Segment) (*Result, error) {
	result := &Result{}

	for start := 0; start < len(segments); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(segments) {
			end = len(segments)
		}
		batch := segments[start:end]

		texts := make([]string, len(batch))
		for i, seg := range batch {
			texts[i] = seg.Text
		}

		vectors, err := b.model.EmbedBatch(ctx, texts)
		if err != nil {
			b.log.WithError(logger.ErrorInfo{Message: err.Error()}).
				Warn(fmt.Sprintf("embedding batch [%d:%d] failed", start, end))
			for _, seg := range batch {
				result.Failed = append(result.Failed, Failure{Segment: seg, Err: err})
			}
			continue
		}

		for i, vec := range vectors {
			if len(vec) != b.dimensions {
				return nil, &ErrDimensionMismatch{Want: b.dimensions, Got: len(vec)}
			}
			batch[i].Embedding = vec
			result.Embedded = append(result.Embedded, batch[i])
		}
	}

	return result, nil
}

// EmbedQuery 将查询文本作为单条批次走同一条嵌入通道。
func (b *Batcher) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := b.model.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	if len(vectors[0]) != b.dimensions {
		return nil, &ErrDimensionMismatch{Want: b.dimensions, Got: len(vectors[0])}
	}
	return vectors[0], nil
}
