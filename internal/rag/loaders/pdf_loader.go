package loaders

import (
	"context"
	"fmt"
	"path/filepath"

	"HealthAgent/internal/rag/interfaces"
	"HealthAgent/internal/rag/preprocess"
	"HealthAgent/internal/rag/schema"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

// PdfLoader implements the Loader interface for reading PDF files.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load reads a PDF file and returns a Document per page.
func (l *PdfLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, preprocess.NewParseError(path, err)
	}
	defer f.Close()

	var documents []*schema.Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with unsupported encodings are skipped, not fatal.
			continue
		}

		documents = append(documents, &schema.Document{
			ID:   uuid.New().String(),
			Path: path,
			Text: text,
			Metadata: map[string]interface{}{
				schema.MetadataKeyFileName:  filepath.Base(path),
				schema.MetadataKeyPageLabel: fmt.Sprintf("%d", i),
			},
		})
	}

	if len(documents) == 0 {
		return nil, preprocess.NewParseError(path, fmt.Errorf("no extractable text in PDF"))
	}

	return documents, nil
}

// compile-time check to ensure PdfLoader implements the Loader interface
var _ interfaces.Loader = (*PdfLoader)(nil)
