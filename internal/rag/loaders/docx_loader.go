package loaders

import (
	"context"
	"path/filepath"
	"strings"

	"HealthAgent/internal/rag/interfaces"
	"HealthAgent/internal/rag/preprocess"
	"HealthAgent/internal/rag/schema"

	"github.com/google/uuid"
	"github.com/unidoc/unioffice/v2/document"
)

// DocxLoader 实现了用于读取 Word (.docx) 文件的 Loader 接口。
type DocxLoader struct{}

// NewDocxLoader 创建一个新的 DocxLoader。
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// Load 读取一个 .docx 文件，提取所有段落文本，并返回一个包含全部内容的 Document。
func (l *DocxLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	doc, err := document.Open(path)
	if err != nil {
		return nil, preprocess.NewParseError(path, err)
	}
	defer doc.Close()

	// 提取所有段落的文本内容
	var textBuilder strings.Builder
	for _, p := range doc.Paragraphs() {
		for _, r := range p.Runs() {
			textBuilder.WriteString(r.Text())
		}
		textBuilder.WriteString("\n")
	}

	docResult := &schema.Document{
		ID:   uuid.New().String(),
		Path: path,
		Text: textBuilder.String(),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(path),
		},
	}

	return []*schema.Document{docResult}, nil
}

// 编译时检查，确保 DocxLoader 实现了 Loader 接口
var _ interfaces.Loader = (*DocxLoader)(nil)
