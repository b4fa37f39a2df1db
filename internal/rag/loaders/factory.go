package loaders

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"HealthAgent/internal/rag/interfaces"
	"HealthAgent/internal/rag/preprocess"
	"HealthAgent/internal/rag/schema"

	"github.com/djherbis/times"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"
)

// ForFile resolves a Loader for the given path, first by extension and
// falling back to content sniffing for files without a recognized one.
// Unsupported formats fail with a ParseError.
func ForFile(path string) (interfaces.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		return NewTxtLoader(), nil
	case ".pdf":
		return NewPdfLoader(), nil
	case ".docx":
		return NewDocxLoader(), nil
	case ".xlsx":
		return NewXlsxLoader(), nil
	}

	// No recognized extension; sniff the content type.
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, preprocess.NewParseError(path, err)
	}
	switch {
	case mime.Is("application/pdf"):
		return NewPdfLoader(), nil
	case mime.Is("text/plain"):
		return NewTxtLoader(), nil
	default:
		return nil, preprocess.NewParseError(path, fmt.Errorf("unsupported format %s", mime.String()))
	}
}

// LoadFile loads a single file with the appropriate loader and stamps each
// resulting Document with the file's modification time.
func LoadFile(ctx context.Context, path string) ([]*schema.Document, error) {
	loader, err := ForFile(path)
	if err != nil {
		return nil, err
	}
	docs, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	if ts, err := times.Stat(path); err == nil {
		mod := ts.ModTime().Format("2006-01-02T15:04:05Z07:00")
		for _, doc := range docs {
			doc.Metadata[schema.MetadataKeyModifiedAt] = mod
		}
	}
	return docs, nil
}

// ExpandDir returns the files under root whose relative paths match the glob
// pattern (e.g. "**/*.pdf", "*.{md,txt}"). Used by the ingest CLI.
func ExpandDir(root, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if g.Match(filepath.ToSlash(rel)) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
