package splitters

import (
	"context"
	"strings"

	"HealthAgent/internal/rag/interfaces"
	"HealthAgent/internal/rag/schema"

	"github.com/google/uuid"
)

// StructureSplitter implements the Splitter interface by splitting documents
// on structural boundaries (headings and blank-line separated paragraphs) and
// packing consecutive blocks up to a target size in runes. Paragraphs longer
// than the target are hard-wrapped.
type StructureSplitter struct {
	TargetSize int
}

// NewStructureSplitter creates a new StructureSplitter. targetSize is the
// desired segment length in runes; values below 50 are clamped to 400.
func NewStructureSplitter(targetSize int) *StructureSplitter {
	if targetSize < 50 {
		targetSize = 400
	}
	return &StructureSplitter{TargetSize: targetSize}
}

// Split splits a list of documents into segments, carrying over source
// metadata and assigning per-document positional indexes.
func (s *StructureSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Segment, error) {
	var segments []*schema.Segment

	for _, doc := range docs {
		index := 0
		for _, chunk := range s.pack(s.blocks(doc.Text)) {
			seg := &schema.Segment{
				ID:       uuid.New().String(),
				DocPath:  doc.Path,
				Index:    index,
				Text:     chunk,
				Metadata: s.copyMetadata(doc.Metadata),
			}
			seg.Metadata[schema.MetadataKeyLanguage] = doc.Language
			segments = append(segments, seg)
			index++
		}
	}

	return segments, nil
}

// blocks cuts text into structural units: a heading line starts a new block,
// blank lines terminate the current one.
func (s *StructureSplitter) blocks(text string) []string {
	var out []string
	var current strings.Builder

	flush := func() {
		b := strings.TrimSpace(current.String())
		if b != "" {
			out = append(out, b)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if isHeading(trimmed) {
			flush()
			out = append(out, trimmed)
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(trimmed)
	}
	flush()

	return out
}

// pack greedily joins consecutive blocks up to the target rune count,
// hard-wrapping any single block that exceeds it on its own.
func (s *StructureSplitter) pack(blocks []string) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, block := range blocks {
		runes := []rune(block)
		if len(runes) > s.TargetSize {
			flush()
			for start := 0; start < len(runes); start += s.TargetSize {
				end := start + s.TargetSize
				if end > len(runes) {
					end = len(runes)
				}
				chunks = append(chunks, string(runes[start:end]))
			}
			continue
		}
		if currentLen > 0 && currentLen+len(runes)+1 > s.TargetSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n")
			currentLen++
		}
		current.WriteString(block)
		currentLen += len(runes)
	}
	flush()

	return chunks
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, "#")
}

func (s *StructureSplitter) copyMetadata(md map[string]interface{}) map[string]interface{} {
	newMd := make(map[string]interface{}, len(md)+1)
	for k, v := range md {
		newMd[k] = v
	}
	return newMd
}

// compile-time check to ensure StructureSplitter implements the Splitter interface
var _ interfaces.Splitter = (*StructureSplitter)(nil)
