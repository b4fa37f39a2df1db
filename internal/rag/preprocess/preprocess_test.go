package preprocess

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name        string
		sample      string
		defaultLang string
		want        string
	}{
		{"pure chinese", "高血压患者应注意低盐饮食，保持规律作息。", "chinese", LanguageChinese},
		{"pure english", "Patients with hypertension should maintain a low-sodium diet.", "chinese", LanguageEnglish},
		{"mixed mostly chinese", "帮我计算BMI并制定减肥计划", "chinese", LanguageChinese},
		{"digits only falls back", "123456 7890", "chinese", LanguageChinese},
		{"digits only custom default", "123456 7890", "english", "english"},
		{"empty falls back", "", "chinese", LanguageChinese},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectLanguage(tt.sample, tt.defaultLang)
			if got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.sample, got, tt.want)
			}
		})
	}
}

func TestIsReference(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"bracketed citation", "高血压患者应注意低盐饮食 [3]", true},
		{"chinese reference header", "参考文献: 王等(2020)", true},
		{"english reference header", "References\n1. Smith et al.", true},
		{"doi prefix", "see doi:10.1000/xyz123 for details", true},
		{"bare url", "more at https://example.org/health", true},
		{"plain advice", "高血压患者应注意低盐饮食，保持规律作息。", false},
		{"plain english", "Regular exercise lowers resting blood pressure.", false},
		{"empty", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReference(tt.text); got != tt.want {
				t.Errorf("IsReference(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

// Filtering must be idempotent: running the check twice yields the same flag.
func TestIsReferenceIdempotent(t *testing.T) {
	samples := []string{
		"高血压患者应注意低盐饮食 [3]",
		"参考文献: 王等(2020)",
		"Regular exercise lowers resting blood pressure.",
	}
	for _, s := range samples {
		first := IsReference(s)
		second := IsReference(s)
		if first != second {
			t.Errorf("IsReference(%q) not idempotent: %v then %v", s, first, second)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(file, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The same file reached via a relative detour must normalize identically.
	detour := filepath.Join(dir, "..", filepath.Base(dir), "note.txt")

	a, err := NormalizePath(file)
	if err != nil {
		t.Fatalf("NormalizePath(%q) error = %v", file, err)
	}
	b, err := NormalizePath(detour)
	if err != nil {
		t.Fatalf("NormalizePath(%q) error = %v", detour, err)
	}
	if a != b {
		t.Errorf("expected identical canonical paths, got %q and %q", a, b)
	}

	if _, err := NormalizePath(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for nonexistent file")
	}
}
