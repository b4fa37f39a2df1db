package preprocess

import (
	"regexp"
	"strings"
)

// Patterns identifying bibliographic/reference content. A segment matching
// any of them is flagged so it never reaches embedding or storage.
var (
	// Bracketed numeric citation anywhere in the segment, e.g. "[12]".
	// A segment that merely cites literature inline is still flagged; the
	// filter trades a little recall for never indexing citation noise.
	bracketCitationRe = regexp.MustCompile(`\[\d+\]`)

	// Reference section headers at the start of a line.
	referenceHeaderRe = regexp.MustCompile(`(?m)^\s*(References|参考文献)`)

	// DOI prefixes, case-insensitive.
	doiRe = regexp.MustCompile(`(?i)\bdoi:`)

	// Bare URLs.
	urlRe = regexp.MustCompile(`https?://\S+`)
)

// IsReference reports whether a text segment is bibliographic/citation
// content. The check is stateless, so applying it repeatedly to the same
// segment always yields the same flag.
func IsReference(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return bracketCitationRe.MatchString(text) ||
		referenceHeaderRe.MatchString(text) ||
		doiRe.MatchString(text) ||
		urlRe.MatchString(text)
}
