package repository

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VectorTextRepository struct {
	db dbtx
}

func NewVectorTextRepository(pool *pgxpool.Pool) *VectorTextRepository {
	return &VectorTextRepository{db: pool}
}

func NewVectorTextRepositoryWithTx(tx pgx.Tx) *VectorTextRepository {
	return &VectorTextRepository{db: tx}
}

// Insert adds the vectorizable text for a document. A second insert for the
// same document is a no-op and reports false.
func (r *VectorTextRepository) Insert(ctx context.Context, tenantID string, vt *domain.VectorText) (bool, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return false, err
	}
	meta, err := marshalMetadata(vt.Metadata)
	if err != nil {
		return false, fmt.Errorf("encode metadata: %w", err)
	}
	cmdTag, err := r.db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (document_id, project_id, title, url, metadata, text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (document_id) DO NOTHING`, table(schema, "vector_text")),
		vt.DocumentID, vt.ProjectID, vt.Title, vt.URL, meta, vt.Text, vt.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() == 1, nil
}

// ClaimUnembedded locks up to limit rows that have not been embedded and are
// below the attempt cap, least-tried first. Locks are held until the surrounding transaction
// ends, so callers run it inside WithTx.
func (r *VectorTextRepository) ClaimUnembedded(ctx context.Context, tenantID string, limit, maxAttempts int) ([]*domain.VectorText, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT id, document_id::text, project_id::text, title, url, metadata, text, attempts,
		        last_error, created_at, embedded_at
		 FROM %s
		 WHERE embedded_at IS NULL AND attempts < $1
		 ORDER BY attempts ASC, created_at ASC
		 FOR UPDATE SKIP LOCKED
		 LIMIT $2`, table(schema, "vector_text")),
		maxAttempts, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var texts []*domain.VectorText
	for rows.Next() {
		var vt domain.VectorText
		var meta []byte
		var lastError pgtype.Text
		if err := rows.Scan(&vt.ID, &vt.DocumentID, &vt.ProjectID, &vt.Title, &vt.URL, &meta, &vt.Text,
			&vt.Attempts, &lastError, &vt.CreatedAt, &vt.EmbeddedAt); err != nil {
			return nil, err
		}
		vt.Metadata = unmarshalMetadata(meta)
		if lastError.Valid {
			vt.LastError = lastError.String
		}
		texts = append(texts, &vt)
	}
	return texts, rows.Err()
}

func (r *VectorTextRepository) MarkEmbedded(ctx context.Context, tenantID string, id int64) error {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET embedded_at = now(), last_error = NULL WHERE id = $1`, table(schema, "vector_text")),
		id,
	)
	return err
}

func (r *VectorTextRepository) RecordFailure(ctx context.Context, tenantID string, id int64, errMsg string) error {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET attempts = attempts + 1, last_error = $1 WHERE id = $2`, table(schema, "vector_text")),
		errMsg, id,
	)
	return err
}
