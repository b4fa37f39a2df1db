package loaders

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"HealthAgent/internal/rag/interfaces"
	"HealthAgent/internal/rag/preprocess"
	"HealthAgent/internal/rag/schema"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/google/uuid"
)

// WebLoader implements the Loader interface for fetching and parsing web pages.
// The page HTML is converted to markdown so the splitter sees the same
// structural boundaries (headings, paragraphs) as in file sources.
type WebLoader struct {
	client *http.Client
}

// NewWebLoader creates a new WebLoader.
func NewWebLoader() *WebLoader {
	return &WebLoader{client: http.DefaultClient}
}

// Load fetches content from a URL and returns it as a single Document.
func (l *WebLoader) Load(ctx context.Context, url string) ([]*schema.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, preprocess.NewParseError(url, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, preprocess.NewParseError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, preprocess.NewParseError(url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, preprocess.NewParseError(url, err)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return nil, preprocess.NewParseError(url, err)
	}

	doc := &schema.Document{
		ID:   uuid.New().String(),
		Path: url,
		Text: markdown,
		Metadata: map[string]interface{}{
			schema.MetadataKeySourceURL: url,
		},
	}

	return []*schema.Document{doc}, nil
}

// compile-time check to ensure WebLoader implements the Loader interface
var _ interfaces.Loader = (*WebLoader)(nil)
