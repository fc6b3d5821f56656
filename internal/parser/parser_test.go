package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainTextParser_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("\ufeff# Notes\nhello"), 0o600))
	meta := map[string]any{domain.MetaDocumentID: "doc-1"}

	parsed, err := NewPlainTextParser().Parse(context.Background(), Source{Path: path, FileType: "md", Metadata: meta})

	require.NoError(t, err)
	assert.Equal(t, "# Notes\nhello", parsed.Text)
	assert.Equal(t, "doc-1", parsed.CorrelationID())
}

func TestPlainTextParser_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("a,b\n1,2"))
	}))
	defer srv.Close()

	parsed, err := NewPlainTextParser().Parse(context.Background(), Source{URL: srv.URL, FileType: "csv"})

	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2", parsed.Text)
}

func TestPlainTextParser_RejectsOversizedDocument(t *testing.T) {
	body := strings.Repeat("a", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	tests := map[string]Source{
		"staged by url":  {URL: srv.URL, FileType: "txt"},
		"staged on disk": {Path: path, FileType: "txt"},
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			p := NewPlainTextParser()
			p.maxBytes = 63

			parsed, err := p.Parse(context.Background(), src)
			assert.Nil(t, parsed)
			assert.ErrorIs(t, err, ErrDocumentTooLarge)

			p.maxBytes = 64
			parsed, err = p.Parse(context.Background(), src)
			require.NoError(t, err)
			assert.Equal(t, body, parsed.Text)
		})
	}
}

func TestPlainTextParser_InvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bin.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0xfd}, 0o600))

	_, err := NewPlainTextParser().Parse(context.Background(), Source{Path: path, FileType: "txt"})

	assert.Error(t, err)
}

func TestParser_MetadataIsCopied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	meta := map[string]any{domain.MetaDocumentID: "doc-1"}

	parsed, err := NewPlainTextParser().Parse(context.Background(), Source{Path: path, Metadata: meta})
	require.NoError(t, err)
	parsed.Metadata["extra"] = true

	assert.NotContains(t, meta, "extra")
}

func TestRouter(t *testing.T) {
	local := ParserFunc(func(ctx context.Context, src Source) (*domain.ParsedDocument, error) {
		return &domain.ParsedDocument{Text: "local"}, nil
	})
	remote := ParserFunc(func(ctx context.Context, src Source) (*domain.ParsedDocument, error) {
		return &domain.ParsedDocument{Text: "remote"}, nil
	})
	router := NewRouter(remote).Handle(local, PlainTextTypes...)

	tests := []struct {
		fileType string
		want     string
	}{
		{"txt", "local"},
		{".MD", "local"},
		{"pdf", "remote"},
		{"docx", "remote"},
	}
	for _, tt := range tests {
		t.Run(tt.fileType, func(t *testing.T) {
			parsed, err := router.Parse(context.Background(), Source{FileType: tt.fileType})
			require.NoError(t, err)
			assert.Equal(t, tt.want, parsed.Text)
		})
	}
}

func TestRouter_NoFallback(t *testing.T) {
	router := NewRouter(nil).Handle(NewPlainTextParser(), "txt")

	_, err := router.Parse(context.Background(), Source{FileType: "pdf"})

	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeValidation))
}

func testDocument() *domain.Document {
	return domain.NewDocument("doc-1", "tenant-1", "project-1", "Report.PDF", "user-1",
		[]byte("%PDF"), map[string]any{"source": "mail"}, time.Now())
}

func TestTempFileStager(t *testing.T) {
	dir := t.TempDir()
	stager := NewTempFileStager(dir)

	src, cleanup, err := stager.Stage(context.Background(), testDocument())
	require.NoError(t, err)

	assert.Equal(t, "pdf", src.FileType)
	assert.Equal(t, ".pdf", filepath.Ext(src.Path))
	assert.Equal(t, "doc-1", src.Metadata[domain.MetaDocumentID])
	assert.Equal(t, "mail", src.Metadata["source"])
	data, err := os.ReadFile(src.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))

	cleanup()
	cleanup()
	_, err = os.Stat(src.Path)
	assert.True(t, os.IsNotExist(err))
}

type fakeObjectStore struct {
	puts    map[string][]byte
	deleted []string
	urlErr  error
}

func (f *fakeObjectStore) PutObject(ctx context.Context, key, contentType string, data []byte) error {
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[key] = data
	return nil
}

func (f *fakeObjectStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "https://objects.example/" + key + "?sig=abc", nil
}

func (f *fakeObjectStore) DeleteObject(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func TestObjectStager(t *testing.T) {
	store := &fakeObjectStore{}
	stager := NewObjectStager(store, "")

	src, cleanup, err := stager.Stage(context.Background(), testDocument())
	require.NoError(t, err)

	assert.Equal(t, "https://objects.example/staging/tenant-1/doc-1.pdf?sig=abc", src.URL)
	assert.Equal(t, []byte("%PDF"), store.puts["staging/tenant-1/doc-1.pdf"])

	cleanup()
	assert.Equal(t, []string{"staging/tenant-1/doc-1.pdf"}, store.deleted)
}

func TestObjectStager_PresignFailureCleansUp(t *testing.T) {
	store := &fakeObjectStore{urlErr: errors.New("presign failed")}

	_, _, err := NewObjectStager(store, "tmp").Stage(context.Background(), testDocument())

	require.Error(t, err)
	assert.Equal(t, []string{"tmp/tenant-1/doc-1.pdf"}, store.deleted)
}
