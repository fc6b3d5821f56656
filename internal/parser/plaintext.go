package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

const maxPlainTextBytes int64 = 32 << 20

// PlainTextTypes are file types PlainTextParser handles.
var PlainTextTypes = []string{"txt", "md", "markdown", "csv", "json"}

// PlainTextParser reads text-like documents locally without an external
// service.
// Documents larger than the cap fail rather than parse truncated.
type PlainTextParser struct {
	http     *http.Client
	maxBytes int64
}

func NewPlainTextParser() *PlainTextParser {
	return &PlainTextParser{http: http.DefaultClient, maxBytes: maxPlainTextBytes}
}

func (p *PlainTextParser) Parse(ctx context.Context, src Source) (*domain.ParsedDocument, error) {
	var data []byte
	var err error
	switch {
	case src.Path != "":
		data, err = p.readFile(src.Path)
	case src.URL != "":
		data, err = p.fetch(ctx, src.URL)
	default:
		return nil, ErrNoInput
	}
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s document is not valid UTF-8", src.FileType)
	}
	return echo(strings.TrimPrefix(string(data), "\ufeff"), src), nil
}

func (p *PlainTextParser) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch staged document: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrDocumentTooLarge
	}
	return data, nil
}

func (p *PlainTextParser) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > p.maxBytes {
		return nil, ErrDocumentTooLarge
	}
	return os.ReadFile(path)
}

var _ Parser = (*PlainTextParser)(nil)
