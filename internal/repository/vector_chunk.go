package repository

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// VectorChunkRepository stores embedded chunks and answers nearest-neighbour
// queries over them.
type VectorChunkRepository struct {
	db dbtx
}

func NewVectorChunkRepository(pool *pgxpool.Pool) *VectorChunkRepository {
	return &VectorChunkRepository{db: pool}
}

func NewVectorChunkRepositoryWithTx(tx pgx.Tx) *VectorChunkRepository {
	return &VectorChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a vector text and inserts new ones.
func (r *VectorChunkRepository) ReplaceChunks(ctx context.Context, tenantID string, vectorTextID int64, chunks []domain.VectorChunk) error {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return err
	}
	chunkTable := table(schema, "vector_chunk")

	_, err = r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE vector_text_id = $1`, chunkTable), vectorTextID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta, err := marshalMetadata(c.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		_, err = r.db.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s
				(id, vector_text_id, document_id, project_id, title, url, metadata, chunk, chunk_index, embedding)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, chunkTable),
			id,
			vectorTextID,
			c.DocumentID,
			c.ProjectID,
			c.Title,
			c.URL,
			meta,
			c.Chunk,
			c.ChunkIndex,
			pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// SearchChunks returns the limit chunks of a project closest to embedding by
// cosine distance, closest first. The HNSW index spans every project in the
// tenant, so the scan runs iteratively until enough rows survive the project
// filter.
func (r *VectorChunkRepository) SearchChunks(ctx context.Context, tenantID, projectID string, embedding []float32, limit int) ([]*domain.SearchResult, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SET LOCAL hnsw.iterative_scan = strict_order`); err != nil {
		return nil, fmt.Errorf("enable iterative scan: %w", err)
	}

	vec := pgvector.NewVector(embedding)
	rows, err := tx.Query(ctx,
		fmt.Sprintf(`SELECT c.id::text, c.document_id::text, c.project_id::text, c.title, c.url, c.metadata,
		        t.text, c.chunk, c.chunk_index, c.embedding <=> $1 AS distance
		 FROM %s c
		 JOIN %s t ON t.id = c.vector_text_id
		 JOIN %s d ON d.id = c.document_id AND d.deleted_at IS NULL
		 WHERE c.project_id::text = $2
		 ORDER BY distance ASC
		 LIMIT $3`, table(schema, "vector_chunk"), table(schema, "vector_text"), table(schema, "document")),
		vec, projectID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*domain.SearchResult, 0)
	for rows.Next() {
		res := domain.SearchResult{TenantID: tenantID}
		var meta []byte
		if err := rows.Scan(&res.ID, &res.DocumentID, &res.ProjectID, &res.Title, &res.URL, &meta,
			&res.Text, &res.Chunk, &res.ChunkIndex, &res.Distance); err != nil {
			return nil, err
		}
		res.Metadata = unmarshalMetadata(meta)
		results = append(results, &res)
	}
	return results, rows.Err()
}
