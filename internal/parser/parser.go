// Package parser turns staged document bytes into text. Every implementation
// returns a domain.ParsedDocument whose metadata is the Source metadata echoed
// back unchanged, so callers can correlate results with the claimed document.
package parser

import (
	"context"
	"maps"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// Source is a staged document handed to a parser. Exactly one of Path or URL
// is expected to be set.
type Source struct {
	Path     string
	URL      string
	FileType string
	Metadata map[string]any
}

// Parser extracts text from a staged document.
type Parser interface {
	Parse(ctx context.Context, src Source) (*domain.ParsedDocument, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, src Source) (*domain.ParsedDocument, error)

func (f ParserFunc) Parse(ctx context.Context, src Source) (*domain.ParsedDocument, error) {
	return f(ctx, src)
}

func echo(text string, src Source) *domain.ParsedDocument {
	meta := make(map[string]any, len(src.Metadata))
	maps.Copy(meta, src.Metadata)
	return &domain.ParsedDocument{Text: text, Metadata: meta}
}
