package pipeline

import (
	"context"
	"fmt"

	"HealthAgent/internal/rag/embeddings"
	"HealthAgent/internal/rag/interfaces"
	"HealthAgent/internal/rag/loaders"
	"HealthAgent/internal/rag/preprocess"
	"HealthAgent/internal/rag/schema"
	"HealthAgent/pkg/logger"
)

// IndexReport summarizes one ingestion run. FailedSegments lists the IDs of
// segments whose embedding batch failed; the caller may retry just those.
type IndexReport struct {
	Path              string
	Language          string
	TotalSegments     int
	ReferenceSegments int
	Indexed           int
	FailedSegments    []string
}

// IndexingPipeline orchestrates loading, language detection, splitting,
// reference filtering, batched embedding, and vector store upsert.
type IndexingPipeline struct {
	splitter    interfaces.Splitter
	batcher     *embeddings.Batcher
	vectorStore interfaces.VectorStore
	defaultLang string
	sem         chan struct{}
	log         *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline. maxConcurrency bounds
// the number of outstanding embedding/store calls across concurrent runs.
func NewIndexingPipeline(
	splitter interfaces.Splitter,
	batcher *embeddings.Batcher,
	vectorStore interfaces.VectorStore,
	defaultLang string,
	maxConcurrency int,
	log *logger.Logger,
) *IndexingPipeline {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &IndexingPipeline{
		splitter:    splitter,
		batcher:     batcher,
		vectorStore: vectorStore,
		defaultLang: defaultLang,
		sem:         make(chan struct{}, maxConcurrency),
		log:         log,
	}
}

// RunFile ingests a local file. The path is normalized to its canonical
// absolute form first so aliased paths share one document identity.
// Parse failures are not retried here; retry policy belongs to the caller.
func (p *IndexingPipeline) RunFile(ctx context.Context, path string) (*IndexReport, error) {
	normalized, err := preprocess.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	docs, err := loaders.LoadFile(ctx, normalized)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, normalized, docs)
}

// RunURL ingests a web page.
func (p *IndexingPipeline) RunURL(ctx context.Context, url string) (*IndexReport, error) {
	docs, err := loaders.NewWebLoader().Load(ctx, url)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, url, docs)
}

func (p *IndexingPipeline) run(ctx context.Context, source string, docs []*schema.Document) (*IndexReport, error) {
	p.log.Info(fmt.Sprintf("Starting indexing for: %s (%d documents)", source, len(docs)))

	// 1. Detect language per document from a bounded sample.
	for _, doc := range docs {
		doc.Language = preprocess.DetectLanguage(sample(doc.Text, 2000), p.defaultLang)
	}

	// 2. Split into segments.
	segments, err := p.splitter.Split(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to split documents: %w", err)
	}

	report := &IndexReport{Path: source, TotalSegments: len(segments)}
	if len(docs) > 0 {
		report.Language = docs[0].Language
	}

	// 3. Reference filter: flagged segments are logged for audit but never
	// embedded or stored.
	var indexable []*schema.Segment
	for _, seg := range segments {
		if preprocess.IsReference(seg.Text) {
			seg.IsReference = true
			report.ReferenceSegments++
			p.log.WithPayload(map[string]interface{}{
				"doc_path":  seg.DocPath,
				"seg_index": seg.Index,
				"text":      seg.Text,
			}).Debug("segment filtered as reference content")
			continue
		}
		indexable = append(indexable, seg)
	}

	if len(indexable) == 0 {
		p.log.Info(fmt.Sprintf("No indexable segments for: %s", source))
		return report, nil
	}

	// 4. Embed in batches of at most 10.
	p.sem <- struct{}{}
	result, err := p.batcher.EmbedSegments(ctx, indexable)
	<-p.sem
	if err != nil {
		return nil, err
	}
	for _, f := range result.Failed {
		report.FailedSegments = append(report.FailedSegments, f.Segment.ID)
	}

	// 5. Upsert the embedded segments. On failure they stay unindexed and
	// join the retryable set.
	if len(result.Embedded) > 0 {
		p.sem <- struct{}{}
		count, err := p.vectorStore.Upsert(ctx, result.Embedded)
		<-p.sem
		if err != nil {
			for _, seg := range result.Embedded {
				report.FailedSegments = append(report.FailedSegments, seg.ID)
			}
			p.log.WithError(logger.ErrorInfo{Message: err.Error()}).Error("vector store upsert failed")
			return report, err
		}
		report.Indexed = count
	}

	p.log.Info(fmt.Sprintf("Finished indexing for: %s (indexed %d of %d segments, %d reference)",
		source, report.Indexed, report.TotalSegments, report.ReferenceSegments))
	return report, nil
}

func sample(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
