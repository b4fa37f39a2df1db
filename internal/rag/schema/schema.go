package schema

const (
	// MetadataKeyFileName is the key for the source file name.
	MetadataKeyFileName = "file_name"
	// MetadataKeyPageLabel is the key for the page number or label from the source document.
	MetadataKeyPageLabel = "page_label"
	// MetadataKeySheetName is the key for the spreadsheet sheet name.
	MetadataKeySheetName = "sheet_name"
	// MetadataKeySourceURL is the key for the origin URL of web content.
	MetadataKeySourceURL = "source_url"
	// MetadataKeyLanguage is the key for the detected document language.
	MetadataKeyLanguage = "language"
	// MetadataKeyModifiedAt is the key for the source file's modification time (RFC3339).
	MetadataKeyModifiedAt = "modified_at"
	// MetadataKeyScore is the key under which retrieval stores the similarity score.
	MetadataKeyScore = "score"
)

// Document is a parsed unit of source content before chunking.
// It is identified by the canonical absolute path of its source file,
// so the same file reached via different relative paths yields the same identity.
type Document struct {
	// ID is the unique identifier for this document.
	ID string

	// Path is the normalized absolute source path (or URL for web content).
	Path string

	// Text is the parsed string content.
	Text string

	// Language is the detected language ("chinese" or "english").
	Language string

	// Metadata holds arbitrary data about the document.
	Metadata map[string]interface{}
}

// Segment is a chunk of parsed document text, the unit of embedding and storage.
type Segment struct {
	// ID is the unique identifier for this segment, also the vector record primary key.
	ID string

	// DocPath references the source document by its normalized path.
	DocPath string

	// Index is the position of this segment within its source document.
	Index int

	// Text is the chunk content.
	Text string

	// IsReference marks bibliographic/citation content. Reference segments
	// are retained for audit logging but never embedded or stored.
	IsReference bool

	// Embedding is the vector representation of the text; nil until embedded.
	Embedding []float32

	// Metadata holds source information (file name, page label, language, ...).
	Metadata map[string]interface{}
}

// Passage is a retrieval result: a stored segment text with its similarity score.
type Passage struct {
	Text     string
	Score    float32
	Metadata map[string]interface{}
}
