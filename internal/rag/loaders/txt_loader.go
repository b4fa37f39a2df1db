package loaders

import (
	"context"
	"os"
	"path/filepath"

	"HealthAgent/internal/rag/interfaces"
	"HealthAgent/internal/rag/preprocess"
	"HealthAgent/internal/rag/schema"

	"github.com/google/uuid"
)

// TxtLoader implements the Loader interface for plain text and markdown files.
type TxtLoader struct{}

// NewTxtLoader creates a new TxtLoader.
func NewTxtLoader() *TxtLoader {
	return &TxtLoader{}
}

// Load reads a text file from the given path and returns it as a single Document.
func (l *TxtLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, preprocess.NewParseError(path, err)
	}

	doc := &schema.Document{
		ID:   uuid.New().String(),
		Path: path,
		Text: string(content),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(path),
		},
	}

	return []*schema.Document{doc}, nil
}

// compile-time check to ensure TxtLoader implements the Loader interface
var _ interfaces.Loader = (*TxtLoader)(nil)
