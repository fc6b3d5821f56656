package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/logging"
	"go.uber.org/zap"
)

const (
	defaultVectorizeBatch       = 10
	defaultVectorizeMaxAttempts = 3
)

// VectorizeReport summarizes one vectorization pass over a tenant.
type VectorizeReport struct {
	Embedded int
	Failed   int
	Chunks   int
}

// VectorizeService embeds the vectorizable text of parsed documents and moves
// them to READY.
type VectorizeService struct {
	txRunner    TxRunner
	client      EmbeddingClient
	chunkCfg    ChunkConfig
	batchSize   int
	maxAttempts int
}

// VectorizeConfig configures NewVectorizeService. Zero values take defaults.
type VectorizeConfig struct {
	Chunking    ChunkConfig
	BatchSize   int
	MaxAttempts int
}

func NewVectorizeService(txRunner TxRunner, client EmbeddingClient, cfg VectorizeConfig) *VectorizeService {
	if cfg.Chunking.MaxChars <= 0 {
		cfg.Chunking = DefaultChunkConfig()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultVectorizeBatch
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultVectorizeMaxAttempts
	}
	return &VectorizeService{
		txRunner:    txRunner,
		client:      client,
		chunkCfg:    cfg.Chunking,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
	}
}

// VectorizeTenant embeds up to a batch of unembedded rows, each in its own
// transaction. A row stays locked only while it is embedded, and a database
// error stops the pass without undoing rows already committed. An embedding
// failure is recorded on the row and the pass moves on; a row is tried at
// most once per pass.
func (s *VectorizeService) VectorizeTenant(ctx context.Context, tenantID string) (VectorizeReport, error) {
	var report VectorizeReport
	log := logging.FromContext(ctx).With(zap.String("tenant_id", tenantID))
	tried := make(map[int64]bool)

	for report.Embedded+report.Failed < s.batchSize {
		outcome, err := s.vectorizeNext(ctx, tenantID, tried, log)
		if err != nil {
			return report, err
		}
		if outcome.idle {
			break
		}
		if outcome.failed {
			report.Failed++
			continue
		}
		report.Embedded++
		report.Chunks += outcome.chunks
	}
	return report, nil
}

type rowOutcome struct {
	idle   bool
	failed bool
	chunks int
}

func (s *VectorizeService) vectorizeNext(ctx context.Context, tenantID string, tried map[int64]bool, log *zap.Logger) (rowOutcome, error) {
	var out rowOutcome
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		out = rowOutcome{}

		texts, err := repos.VectorTexts().ClaimUnembedded(ctx, tenantID, 1, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim unembedded: %w", err)
		}
		if len(texts) == 0 || tried[texts[0].ID] {
			out.idle = true
			return nil
		}
		vt := texts[0]
		tried[vt.ID] = true

		chunks, err := s.embed(ctx, vt)
		if err != nil {
			log.Warn("embedding failed",
				zap.String("document_id", vt.DocumentID),
				zap.Int("attempt", vt.Attempts+1),
				zap.Error(err),
			)
			if err := repos.VectorTexts().RecordFailure(ctx, tenantID, vt.ID, truncateError(err.Error(), maxErrorLength)); err != nil {
				return fmt.Errorf("record failure: %w", err)
			}
			out.failed = true
			return nil
		}

		if err := repos.VectorChunks().ReplaceChunks(ctx, tenantID, vt.ID, chunks); err != nil {
			return fmt.Errorf("replace chunks: %w", err)
		}
		if err := repos.VectorTexts().MarkEmbedded(ctx, tenantID, vt.ID); err != nil {
			return fmt.Errorf("mark embedded: %w", err)
		}
		ok, err := repos.Documents().Advance(ctx, tenantID, domain.Transition{
			DocumentID: vt.DocumentID,
			From:       domain.DocumentStatusQueuedEmbedding,
			To:         domain.DocumentStatusReady,
		})
		if err != nil {
			return fmt.Errorf("mark ready: %w", err)
		}
		if !ok {
			log.Debug("document not awaiting embedding", zap.String("document_id", vt.DocumentID))
		}
		out.chunks = len(chunks)
		return nil
	})
	return out, err
}

func (s *VectorizeService) embed(ctx context.Context, vt *domain.VectorText) ([]domain.VectorChunk, error) {
	pieces := SplitText(vt.Text, s.chunkCfg)
	if len(pieces) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	chunks := make([]domain.VectorChunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := s.client.GenerateEmbedding(ctx, chunkEmbeddingText(vt.Title, piece))
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		chunks = append(chunks, domain.VectorChunk{
			VectorTextID: vt.ID,
			DocumentID:   vt.DocumentID,
			ProjectID:    vt.ProjectID,
			Title:        vt.Title,
			URL:          vt.URL,
			Metadata:     vt.Metadata,
			Chunk:        piece,
			ChunkIndex:   i,
			Embedding:    embedding,
		})
	}
	return chunks, nil
}

func chunkEmbeddingText(title, chunk string) string {
	if title == "" {
		return chunk
	}
	return title + "\n\n" + chunk
}
