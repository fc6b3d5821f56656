package domain

import (
	"fmt"
	"time"
)

// VectorText is one row of a tenant's vectorizable-text table. Inserting it is
// the side effect that asks the embedding pipeline to vectorize a document.
type VectorText struct {
	ID         int64
	DocumentID string
	ProjectID  string
	Title      string
	URL        string
	Metadata   map[string]any
	Text       string
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	EmbeddedAt *time.Time
}

// VectorChunk is an embedded slice of a VectorText.
type VectorChunk struct {
	ID           string
	VectorTextID int64
	DocumentID   string
	ProjectID    string
	Title        string
	URL          string
	Metadata     map[string]any
	Chunk        string
	ChunkIndex   int
	Embedding    []float32
}

// NewVectorText builds the row inserted once a document has been parsed.
func NewVectorText(doc *Document, parsed *ParsedDocument, createdAt time.Time) *VectorText {
	title := parsed.MetaString(MetaTitle)
	if title == "" {
		title = doc.UploadedName
	}
	url := parsed.MetaString(MetaURL)
	if url == "" {
		url = doc.SourceURL
	}
	return &VectorText{
		DocumentID: doc.ID,
		ProjectID:  doc.ProjectID,
		Title:      title,
		URL:        url,
		Metadata:   parsed.Metadata,
		Text:       parsed.Text,
		CreatedAt:  createdAt,
	}
}

// ValidateVectorText validates a VectorText instance
func ValidateVectorText(v *VectorText) error {
	if v == nil {
		return fmt.Errorf("vector text cannot be nil")
	}

	if v.DocumentID == "" {
		return fmt.Errorf("vector text DocumentID is required")
	}

	if v.ProjectID == "" {
		return fmt.Errorf("vector text ProjectID is required")
	}

	return nil
}
