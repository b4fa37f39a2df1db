package loaders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"HealthAgent/internal/rag/schema"
)

func TestForFileByExtension(t *testing.T) {
	tests := []struct {
		path string
		want interface{}
	}{
		{"guide.txt", &TxtLoader{}},
		{"guide.md", &TxtLoader{}},
		{"report.PDF", &PdfLoader{}},
		{"plan.docx", &DocxLoader{}},
		{"records.xlsx", &XlsxLoader{}},
	}

	for _, tt := range tests {
		loader, err := ForFile(tt.path)
		if err != nil {
			t.Errorf("ForFile(%q) error = %v", tt.path, err)
			continue
		}
		if _, okTxt := tt.want.(*TxtLoader); okTxt {
			if _, ok := loader.(*TxtLoader); !ok {
				t.Errorf("ForFile(%q) = %T, want *TxtLoader", tt.path, loader)
			}
		}
	}
}

func TestForFileUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	// PNG magic bytes: neither text nor a supported document format.
	if err := os.WriteFile(path, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ForFile(path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFileStampsModifiedTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("低盐饮食有助于控制血压"), 0o644); err != nil {
		t.Fatal(err)
	}

	docs, err := LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Text != "低盐饮食有助于控制血压" {
		t.Errorf("unexpected text: %q", docs[0].Text)
	}
	if _, ok := docs[0].Metadata[schema.MetadataKeyModifiedAt]; !ok {
		t.Error("expected modified_at metadata")
	}
}

func TestExpandDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.txt", "b.pdf", filepath.Join("nested", "c.txt")} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := ExpandDir(dir, "**.txt")
	if err != nil {
		t.Fatalf("ExpandDir() error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected 2 matches, got %d: %v", len(matches), matches)
	}
}
