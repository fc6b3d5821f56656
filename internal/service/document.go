package service

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/pagination"
)

const (
	defaultDocumentPageSize = 20
	maxDocumentPageSize     = 100
	defaultErrorListLimit   = 50
)

// UploadDocumentInput represents input for uploading a document
type UploadDocumentInput struct {
	TenantID  string
	ProjectID string
	UserID    string
	FileName  string
	SourceURL string
	Data      []byte
	Metadata  map[string]any
}

// ListDocumentsInput represents input for listing recent documents
type ListDocumentsInput struct {
	TenantID  string
	ProjectID string
	UserID    string
	Cursor    string
	Limit     int
}

// DocumentPage is one page of documents, newest first.
type DocumentPage struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// DocumentService handles uploads and operator queries over documents.
type DocumentService struct {
	access    *AccessService
	projects  ProjectRepository
	docs      DocumentRepository
	lifecycle *LifecycleManager
	uuidGen   UUIDGenerator
	now       func() time.Time
}

func NewDocumentService(access *AccessService, projects ProjectRepository, docs DocumentRepository, lifecycle *LifecycleManager) *DocumentService {
	return NewDocumentServiceWithUUIDGen(access, projects, docs, lifecycle, &DefaultUUIDGenerator{})
}

// NewDocumentServiceWithUUIDGen creates a DocumentService with a custom UUID generator (for testing)
func NewDocumentServiceWithUUIDGen(access *AccessService, projects ProjectRepository, docs DocumentRepository, lifecycle *LifecycleManager, uuidGen UUIDGenerator) *DocumentService {
	return &DocumentService{
		access:    access,
		projects:  projects,
		docs:      docs,
		lifecycle: lifecycle,
		uuidGen:   uuidGen,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores a new PENDING document in the given project.
func (s *DocumentService) Upload(ctx context.Context, input UploadDocumentInput) (*domain.Document, error) {
	if _, _, err := s.access.Authorize(ctx, input.TenantID, input.UserID, domain.AllRoles); err != nil {
		return nil, err
	}
	if _, err := s.projects.GetByID(ctx, input.TenantID, input.ProjectID); err != nil {
		return nil, err
	}

	doc := domain.NewDocument(s.uuidGen.NewString(), input.TenantID, input.ProjectID,
		input.FileName, input.UserID, input.Data, input.Metadata, s.now())
	doc.SourceURL = input.SourceURL
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, asValidationError(err)
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Get returns a document including its original bytes and parsed text.
func (s *DocumentService) Get(ctx context.Context, tenantID, userID, documentID string) (*domain.Document, error) {
	if _, _, err := s.access.Authorize(ctx, tenantID, userID, domain.AllRoles); err != nil {
		return nil, err
	}
	return s.docs.GetByID(ctx, tenantID, documentID)
}

// ListRecent pages through documents newest first, optionally within one
// project.
func (s *DocumentService) ListRecent(ctx context.Context, input ListDocumentsInput) (*DocumentPage, error) {
	if _, _, err := s.access.Authorize(ctx, input.TenantID, input.UserID, domain.AllRoles); err != nil {
		return nil, err
	}

	limit := pagination.ClampLimit(input.Limit, defaultDocumentPageSize, maxDocumentPageSize)

	var cursor *pagination.Cursor
	if input.Cursor != "" {
		c, err := pagination.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
		}
		cursor = c
	}

	page, err := s.docs.ListRecent(ctx, input.TenantID, input.ProjectID, cursor, limit)
	if err != nil {
		return nil, err
	}
	return &DocumentPage{Items: page.Items, NextCursor: page.Cursor, HasMore: page.HasMore}, nil
}

// Delete soft-deletes a document. Owners and admins only.
func (s *DocumentService) Delete(ctx context.Context, tenantID, userID, documentID string) error {
	if _, _, err := s.access.Authorize(ctx, tenantID, userID, domain.ManagerRoles); err != nil {
		return err
	}
	return s.docs.SoftDelete(ctx, tenantID, documentID)
}

// Retry returns a FAILED document to PENDING with a fresh attempt budget.
func (s *DocumentService) Retry(ctx context.Context, tenantID, userID, documentID string) error {
	if _, _, err := s.access.Authorize(ctx, tenantID, userID, domain.ManagerRoles); err != nil {
		return err
	}
	return s.lifecycle.Retry(ctx, tenantID, documentID)
}

// Stats counts the tenant's documents per status.
func (s *DocumentService) Stats(ctx context.Context, tenantID, userID string) (*domain.StatusCounts, error) {
	if _, _, err := s.access.Authorize(ctx, tenantID, userID, domain.AllRoles); err != nil {
		return nil, err
	}
	return s.docs.CountByStatus(ctx, tenantID)
}

// Errors lists documents carrying a processing error, most recent first.
func (s *DocumentService) Errors(ctx context.Context, tenantID, userID string, limit int) ([]*domain.Document, error) {
	if _, _, err := s.access.Authorize(ctx, tenantID, userID, domain.AllRoles); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultErrorListLimit
	}
	return s.docs.ListFailed(ctx, tenantID, limit)
}

func asValidationError(err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMissingRequiredField.Message, err)
}
