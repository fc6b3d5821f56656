package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/pagination"
	"github.com/google/uuid"
)

// TenantDirectory resolves tenants and memberships from the shared directory.
type TenantDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetMemberRole(ctx context.Context, tenantID, userID string) (domain.Role, error)
}

// TenantRepository manages the tenant directory.
type TenantRepository interface {
	TenantDirectory
	Create(ctx context.Context, tenant *domain.Tenant, owner *domain.TenantMember) error
	ListIDs(ctx context.Context) ([]string, error)
	AddMember(ctx context.Context, member *domain.TenantMember) error
}

// ProjectRepository persists projects inside a tenant schema.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Project, error)
	ListWithCounts(ctx context.Context, tenantID string) ([]*domain.ProjectInfo, error)
}

// DocumentRepository persists documents and their status transitions.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error)
	ListRecent(ctx context.Context, tenantID, projectID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error)
	ListNeedingParse(ctx context.Context, tenantID string, lease time.Duration) ([]*domain.Document, error)
	ClaimForParsing(ctx context.Context, tenantID string, limit int, lease time.Duration, claimToken string) ([]*domain.Document, error)
	Advance(ctx context.Context, tenantID string, t domain.Transition) (bool, error)
	ResetOnFailure(ctx context.Context, tenantID, documentID, claimToken, errMsg string, maxAttempts int) (domain.DocumentStatus, bool, error)
	Retry(ctx context.Context, tenantID, documentID string) (bool, error)
	SoftDelete(ctx context.Context, tenantID, documentID string) error
	CountByStatus(ctx context.Context, tenantID string) (*domain.StatusCounts, error)
	ListFailed(ctx context.Context, tenantID string, limit int) ([]*domain.Document, error)
}

// VectorTextRepository persists the vectorizable text of parsed documents.
type VectorTextRepository interface {
	Insert(ctx context.Context, tenantID string, vt *domain.VectorText) (bool, error)
	ClaimUnembedded(ctx context.Context, tenantID string, limit, maxAttempts int) ([]*domain.VectorText, error)
	MarkEmbedded(ctx context.Context, tenantID string, id int64) error
	RecordFailure(ctx context.Context, tenantID string, id int64, errMsg string) error
}

// VectorChunkRepository stores embedded chunks and searches them.
type VectorChunkRepository interface {
	ReplaceChunks(ctx context.Context, tenantID string, vectorTextID int64, chunks []domain.VectorChunk) error
	SearchChunks(ctx context.Context, tenantID, projectID string, embedding []float32, limit int) ([]*domain.SearchResult, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CompletionClient produces a language-model answer for a prompt.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}
