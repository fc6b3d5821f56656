package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseMetadata_CorrelationKeysWin(t *testing.T) {
	doc := NewDocument("d1", "t1", "p1", "contract.pdf", "u1", []byte("x"),
		map[string]any{"id": "spoofed", "department": "legal"}, time.Now())
	doc.SourceURL = "https://example.com/contract.pdf"

	meta := ParseMetadata(doc)

	assert.Equal(t, "d1", meta[MetaDocumentID])
	assert.Equal(t, "t1", meta[MetaTenantID])
	assert.Equal(t, "p1", meta[MetaProjectID])
	assert.Equal(t, "contract.pdf", meta[MetaTitle])
	assert.Equal(t, "https://example.com/contract.pdf", meta[MetaURL])
	assert.Equal(t, "legal", meta["department"])
	assert.Equal(t, "spoofed", doc.Metadata["id"], "source metadata must not be mutated")
}

func TestParsedDocument_CorrelationID(t *testing.T) {
	assert.Equal(t, "", (*ParsedDocument)(nil).CorrelationID())
	assert.Equal(t, "", (&ParsedDocument{}).CorrelationID())
	assert.Equal(t, "", (&ParsedDocument{Metadata: map[string]any{"id": 42}}).CorrelationID())
	assert.Equal(t, "d1", (&ParsedDocument{Metadata: map[string]any{"id": "d1"}}).CorrelationID())
}

func TestNewVectorText_FallsBackToDocument(t *testing.T) {
	doc := NewDocument("d1", "t1", "p1", "guide.md", "u1", []byte("x"), nil, time.Now())
	parsed := &ParsedDocument{Text: "# Guide", Metadata: map[string]any{"id": "d1"}}

	vt := NewVectorText(doc, parsed, time.Now())

	assert.Equal(t, "d1", vt.DocumentID)
	assert.Equal(t, "p1", vt.ProjectID)
	assert.Equal(t, "guide.md", vt.Title)
	assert.Equal(t, "# Guide", vt.Text)
	assert.NoError(t, ValidateVectorText(vt))
}

func TestDomainError_IsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", ErrTenantNotFound)

	assert.True(t, errors.Is(wrapped, ErrTenantNotFound))
	assert.False(t, errors.Is(wrapped, ErrProjectNotFound))
	assert.True(t, IsCode(wrapped, ErrCodeNotFound))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeNotFound))
}
