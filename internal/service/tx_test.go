package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/pagination"
	"github.com/stretchr/testify/mock"
)

type testTxRepos struct {
	documents    DocumentRepository
	vectorTexts  VectorTextRepository
	vectorChunks VectorChunkRepository
}

func (t *testTxRepos) Documents() DocumentRepository {
	return t.documents
}

func (t *testTxRepos) VectorTexts() VectorTextRepository {
	return t.vectorTexts
}

func (t *testTxRepos) VectorChunks() VectorChunkRepository {
	return t.vectorChunks
}

type testTxRunner struct {
	repos  TxRepositories
	called int
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called++
	return fn(t.repos)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetMemberRole(ctx context.Context, tenantID, userID string) (domain.Role, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).(domain.Role), args.Error(1)
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *domain.Tenant, owner *domain.TenantMember) error {
	args := m.Called(ctx, tenant, owner)
	return args.Error(0)
}

func (m *MockTenantRepository) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTenantRepository) AddMember(ctx context.Context, member *domain.TenantMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Project, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) ListWithCounts(ctx context.Context, tenantID string) ([]*domain.ProjectInfo, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ProjectInfo), args.Error(1)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListRecent(ctx context.Context, tenantID, projectID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error) {
	args := m.Called(ctx, tenantID, projectID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.Document]), args.Error(1)
}

func (m *MockDocumentRepository) ListNeedingParse(ctx context.Context, tenantID string, lease time.Duration) ([]*domain.Document, error) {
	args := m.Called(ctx, tenantID, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ClaimForParsing(ctx context.Context, tenantID string, limit int, lease time.Duration, claimToken string) ([]*domain.Document, error) {
	args := m.Called(ctx, tenantID, limit, lease, claimToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) Advance(ctx context.Context, tenantID string, t domain.Transition) (bool, error) {
	args := m.Called(ctx, tenantID, t)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) ResetOnFailure(ctx context.Context, tenantID, documentID, claimToken, errMsg string, maxAttempts int) (domain.DocumentStatus, bool, error) {
	args := m.Called(ctx, tenantID, documentID, claimToken, errMsg, maxAttempts)
	return args.Get(0).(domain.DocumentStatus), args.Bool(1), args.Error(2)
}

func (m *MockDocumentRepository) Retry(ctx context.Context, tenantID, documentID string) (bool, error) {
	args := m.Called(ctx, tenantID, documentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) SoftDelete(ctx context.Context, tenantID, documentID string) error {
	args := m.Called(ctx, tenantID, documentID)
	return args.Error(0)
}

func (m *MockDocumentRepository) CountByStatus(ctx context.Context, tenantID string) (*domain.StatusCounts, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatusCounts), args.Error(1)
}

func (m *MockDocumentRepository) ListFailed(ctx context.Context, tenantID string, limit int) ([]*domain.Document, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

type MockVectorTextRepository struct {
	mock.Mock
}

func (m *MockVectorTextRepository) Insert(ctx context.Context, tenantID string, vt *domain.VectorText) (bool, error) {
	args := m.Called(ctx, tenantID, vt)
	return args.Bool(0), args.Error(1)
}

func (m *MockVectorTextRepository) ClaimUnembedded(ctx context.Context, tenantID string, limit, maxAttempts int) ([]*domain.VectorText, error) {
	args := m.Called(ctx, tenantID, limit, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VectorText), args.Error(1)
}

func (m *MockVectorTextRepository) MarkEmbedded(ctx context.Context, tenantID string, id int64) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockVectorTextRepository) RecordFailure(ctx context.Context, tenantID string, id int64, errMsg string) error {
	args := m.Called(ctx, tenantID, id, errMsg)
	return args.Error(0)
}

type MockVectorChunkRepository struct {
	mock.Mock
}

func (m *MockVectorChunkRepository) ReplaceChunks(ctx context.Context, tenantID string, vectorTextID int64, chunks []domain.VectorChunk) error {
	args := m.Called(ctx, tenantID, vectorTextID, chunks)
	return args.Error(0)
}

func (m *MockVectorChunkRepository) SearchChunks(ctx context.Context, tenantID, projectID string, embedding []float32, limit int) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, tenantID, projectID, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, prompt)
	return args.String(0), args.Error(1)
}

type fixedUUIDGenerator struct {
	id string
}

func (g *fixedUUIDGenerator) NewString() string {
	return g.id
}

// memberOf wires a tenant directory mock so userID holds role in tenantID.
func memberOf(tenants *MockTenantRepository, tenantID, userID string, role domain.Role) {
	tenants.On("GetByID", mock.Anything, tenantID).
		Return(domain.NewTenant(tenantID, "acme", time.Now()), nil)
	tenants.On("GetMemberRole", mock.Anything, tenantID, userID).Return(role, nil)
}
