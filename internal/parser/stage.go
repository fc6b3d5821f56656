package parser

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/logging"
	"go.uber.org/zap"
)

// Stager writes a document's raw bytes to a transient location a parser can
// read. The returned cleanup removes it and is safe to call more than once.
type Stager interface {
	Stage(ctx context.Context, doc *domain.Document) (Source, func(), error)
}

// TempFileStager stages documents as files in a local directory.
type TempFileStager struct {
	dir string
}

// NewTempFileStager stages into dir, or the OS temp dir when dir is empty.
func NewTempFileStager(dir string) *TempFileStager {
	return &TempFileStager{dir: dir}
}

func (s *TempFileStager) Stage(ctx context.Context, doc *domain.Document) (Source, func(), error) {
	f, err := os.CreateTemp(s.dir, "docpipe-*."+doc.FileType())
	if err != nil {
		return Source{}, func() {}, fmt.Errorf("create staging file: %w", err)
	}
	name := f.Name()
	cleanup := func() {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			logging.FromContext(ctx).Warn("failed to remove staged file", zap.String("path", name), zap.Error(err))
		}
	}

	if _, err := f.Write(doc.Bytes); err != nil {
		f.Close()
		cleanup()
		return Source{}, func() {}, fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return Source{}, func() {}, fmt.Errorf("close staging file: %w", err)
	}

	return Source{
		Path:     name,
		FileType: doc.FileType(),
		Metadata: domain.ParseMetadata(doc),
	}, cleanup, nil
}

// ObjectStore is the subset of the S3 client used for staging.
type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, data []byte) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// ObjectStager uploads documents to object storage and hands the parser a
// presigned download URL.
type ObjectStager struct {
	store  ObjectStore
	prefix string
}

func NewObjectStager(store ObjectStore, prefix string) *ObjectStager {
	if prefix == "" {
		prefix = "staging"
	}
	return &ObjectStager{store: store, prefix: prefix}
}

func (s *ObjectStager) Stage(ctx context.Context, doc *domain.Document) (Source, func(), error) {
	key := path.Join(s.prefix, doc.TenantID, doc.ID+"."+doc.FileType())
	if err := s.store.PutObject(ctx, key, mime.TypeByExtension("."+doc.FileType()), doc.Bytes); err != nil {
		return Source{}, func() {}, err
	}

	cleanup := func() {
		// The caller's context may already be done.
		if err := s.store.DeleteObject(context.WithoutCancel(ctx), key); err != nil {
			logging.FromContext(ctx).Warn("failed to remove staged object", zap.String("key", key), zap.Error(err))
		}
	}

	url, err := s.store.GenerateDownloadURL(ctx, key)
	if err != nil {
		cleanup()
		return Source{}, func() {}, err
	}

	return Source{
		URL:      url,
		FileType: doc.FileType(),
		Metadata: domain.ParseMetadata(doc),
	}, cleanup, nil
}

var (
	_ Stager = (*TempFileStager)(nil)
	_ Stager = (*ObjectStager)(nil)
)
