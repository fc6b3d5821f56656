package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/logging"
	"github.com/cloo-solutions/docpipe/internal/telemetry"
	"go.uber.org/zap"
)

// SearchInput represents input for search operation
type SearchInput struct {
	TenantID  string
	ProjectID string
	UserID    string
	Query     string
	Limit     int
}

// AskInput represents input for a retrieval-augmented answer.
type AskInput struct {
	SearchInput
	SystemPrompt string
}

// AskOutput is the synthesized answer and the chunks it was grounded on.
type AskOutput struct {
	Answer  string                 `json:"answer"`
	Sources []*domain.SearchResult `json:"sources"`
}

// RetrievalService answers nearest-neighbour queries over a project's chunks.
type RetrievalService struct {
	access    *AccessService
	projects  ProjectRepository
	chunks    VectorChunkRepository
	embedder  EmbeddingClient
	completer CompletionClient
}

// RetrievalServiceConfig holds dependencies for RetrievalService.
type RetrievalServiceConfig struct {
	Access    *AccessService
	Projects  ProjectRepository
	Chunks    VectorChunkRepository
	Embedder  EmbeddingClient
	Completer CompletionClient
}

func NewRetrievalService(cfg RetrievalServiceConfig) *RetrievalService {
	return &RetrievalService{
		access:    cfg.Access,
		projects:  cfg.Projects,
		chunks:    cfg.Chunks,
		embedder:  cfg.Embedder,
		completer: cfg.Completer,
	}
}

// Search returns at most input.Limit chunks, closest first, exactly as the
// index ranks them.
func (s *RetrievalService) Search(ctx context.Context, input SearchInput) ([]*domain.SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "retrieval.search", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		ProjectID: input.ProjectID,
		Operation: "search",
	})
	defer span.End()

	results, err := s.search(ctx, input)
	if err != nil && !domain.IsCode(err, domain.ErrCodeValidation) {
		span.SetError(err)
	}
	return results, err
}

func (s *RetrievalService) search(ctx context.Context, input SearchInput) ([]*domain.SearchResult, error) {
	if input.Limit < 1 {
		return nil, domain.ErrInvalidLimit
	}

	if _, _, err := s.access.Authorize(ctx, input.TenantID, input.UserID, domain.AllRoles); err != nil {
		return nil, err
	}
	if _, err := s.projects.GetByID(ctx, input.TenantID, input.ProjectID); err != nil {
		return nil, err
	}

	query := SanitizeQuery(input.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	if s.embedder == nil {
		return nil, domain.NewDomainError(domain.ErrCodeUnavailable, "embedding provider not configured")
	}
	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to embed query", err)
	}

	results, err := s.chunks.SearchChunks(ctx, input.TenantID, input.ProjectID, embedding, input.Limit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	logging.FromContext(ctx).Debug("search completed",
		zap.String("tenant_id", input.TenantID),
		zap.String("project_id", input.ProjectID),
		zap.Int("limit", input.Limit),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Ask searches, builds the context block and asks the completion model. The
// original, unsanitized query is used in the prompt.
func (s *RetrievalService) Ask(ctx context.Context, input AskInput) (*AskOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "retrieval.ask", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		ProjectID: input.ProjectID,
		Operation: "ask",
	})
	defer span.End()

	systemPrompt := ""
	if input.SystemPrompt != "" {
		var err error
		systemPrompt, err = SanitizeSystemPrompt(input.SystemPrompt)
		if err != nil {
			return nil, err
		}
	}

	if s.completer == nil {
		return nil, domain.NewDomainError(domain.ErrCodeUnavailable, "completion provider not configured")
	}

	results, err := s.search(ctx, input.SearchInput)
	if err != nil {
		if !domain.IsCode(err, domain.ErrCodeValidation) {
			span.SetError(err)
		}
		return nil, err
	}

	prompt := BuildPrompt(input.Query, BuildContext(results))
	answer, err := s.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "completion failed", err)
	}

	return &AskOutput{Answer: answer, Sources: results}, nil
}
