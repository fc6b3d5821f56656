package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// Router dispatches a Source to a parser by file type. Types without a route
// go to the fallback; with no fallback they are rejected.
type Router struct {
	routes   map[string]Parser
	fallback Parser
}

func NewRouter(fallback Parser) *Router {
	return &Router{routes: make(map[string]Parser), fallback: fallback}
}

// Handle routes the given file types to p.
func (r *Router) Handle(p Parser, fileTypes ...string) *Router {
	for _, ft := range fileTypes {
		r.routes[normalizeType(ft)] = p
	}
	return r
}

func (r *Router) Parse(ctx context.Context, src Source) (*domain.ParsedDocument, error) {
	if p, ok := r.routes[normalizeType(src.FileType)]; ok {
		return p.Parse(ctx, src)
	}
	if r.fallback == nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("no parser configured for file type %q", src.FileType))
	}
	return r.fallback.Parse(ctx, src)
}

func normalizeType(ft string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ft)), ".")
}

var _ Parser = (*Router)(nil)
