package domain

import "fmt"

// Metadata keys attached to every parse request and echoed back by the parser.
const (
	MetaDocumentID = "id"
	MetaTenantID   = "tenant_id"
	MetaProjectID  = "project_id"
	MetaTitle      = "title"
	MetaURL        = "url"
)

// ParsedDocument is the single result shape returned by every parser.
type ParsedDocument struct {
	Text     string
	Metadata map[string]any
}

// CorrelationID returns the document ID echoed back in the metadata, or "".
func (p *ParsedDocument) CorrelationID() string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	switch v := p.Metadata[MetaDocumentID].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

// MetaString reads a string metadata value.
func (p *ParsedDocument) MetaString(key string) string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	s, _ := p.Metadata[key].(string)
	return s
}

// ParseMetadata builds the metadata sent alongside a document to the parser.
// User metadata is copied first so the correlation keys cannot be overridden.
func ParseMetadata(d *Document) map[string]any {
	meta := make(map[string]any, len(d.Metadata)+5)
	for k, v := range d.Metadata {
		meta[k] = v
	}
	meta[MetaDocumentID] = d.ID
	meta[MetaTenantID] = d.TenantID
	meta[MetaProjectID] = d.ProjectID
	meta[MetaTitle] = d.UploadedName
	meta[MetaURL] = d.SourceURL
	return meta
}
