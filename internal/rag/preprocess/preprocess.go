package preprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode"
)

// ParseError indicates that loading or parsing a source document failed.
// The preprocessor never retries; retry policy belongs to the caller.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse document '%s': %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError wraps an upstream parsing failure with the offending path.
func NewParseError(path string, err error) *ParseError {
	return &ParseError{Path: path, Err: err}
}

// NormalizePath resolves a file path to its canonical absolute form so that
// the same file reached via different relative paths produces the same
// document identity. The file must exist.
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", NewParseError(path, err)
	}
	// Resolve symlinks so aliased paths collapse to one identity.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewParseError(path, fmt.Errorf("file does not exist"))
		}
		return "", NewParseError(path, err)
	}
	return resolved, nil
}

// Language labels used across the pipeline.
const (
	LanguageChinese = "chinese"
	LanguageEnglish = "english"
)

// Detection thresholds. These are fixed; only the ambiguity fallback is
// configurable (historically it was "chinese").
const (
	cjkRatioThreshold   = 0.1
	latinRatioThreshold = 0.3
)

// DetectLanguage classifies a text sample by counting Unicode ranges:
// the fraction of CJK code points versus Latin-letter code points.
// Classified "chinese" when the CJK ratio exceeds both the Latin ratio and
// 0.1, "english" when the Latin ratio exceeds 0.3, otherwise defaultLang.
func DetectLanguage(sample string, defaultLang string) string {
	if defaultLang == "" {
		defaultLang = LanguageChinese
	}

	var cjk, latin, total int
	for _, r := range sample {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Han, r):
			cjk++
		case r < 128 && unicode.IsLetter(r):
			latin++
		}
	}
	if total == 0 {
		return defaultLang
	}

	cjkRatio := float64(cjk) / float64(total)
	latinRatio := float64(latin) / float64(total)

	if cjkRatio > latinRatio && cjkRatio > cjkRatioThreshold {
		return LanguageChinese
	}
	if latinRatio > latinRatioThreshold {
		return LanguageEnglish
	}
	return defaultLang
}
