package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id::text, project_id::text, uploaded_name, source_url, metadata, status, parsed_text, summary,
	uploaded_by, attempts, last_error, claim_token::text, claimed_at, created_at, updated_at, deleted_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	schema, err := resolveSchema(ctx, r.db, doc.TenantID)
	if err != nil {
		return err
	}
	meta, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = r.db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, project_id, uploaded_name, source_url, bytes, metadata, status, uploaded_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, table(schema, "document")),
		doc.ID, doc.ProjectID, doc.UploadedName, doc.SourceURL, doc.Bytes, meta, string(doc.Status),
		doc.UploadedBy, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// GetByID returns the document including its original bytes.
func (r *DocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s, bytes FROM %s WHERE id::text = $1 AND deleted_at IS NULL`,
			documentColumns, table(schema, "document")),
		id,
	)
	doc, err := scanDocument(row, tenantID, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// ListRecent pages through a tenant's documents newest first, optionally
// filtered by project. Raw bytes are not loaded.
func (r *DocumentRepository) ListRecent(ctx context.Context, tenantID, projectID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE deleted_at IS NULL`, documentColumns, table(schema, "document"))
	args := []any{}
	if projectID != "" {
		args = append(args, projectID)
		query += fmt.Sprintf(" AND project_id::text = $%d", len(args))
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		query += fmt.Sprintf(" AND (created_at, id::text) < ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id::text DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	docs, err := collectDocuments(rows, tenantID, false)
	if err != nil {
		return nil, err
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}
	var nextCursor string
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &pagination.PageResult[*domain.Document]{Items: docs, Cursor: nextCursor, HasMore: hasMore}, nil
}

// ListNeedingParse is the read-only form of discovery: PENDING documents and
// QUEUED_PARSING documents whose claim is older than lease.
func (r *DocumentRepository) ListNeedingParse(ctx context.Context, tenantID string, lease time.Duration) ([]*domain.Document, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s
		 WHERE deleted_at IS NULL
		   AND (status = $1 OR (status = $2 AND (claimed_at IS NULL OR claimed_at < now() - make_interval(secs => $3))))
		 ORDER BY created_at ASC`, documentColumns, table(schema, "document")),
		string(domain.DocumentStatusPending), string(domain.DocumentStatusQueuedParsing), lease.Seconds(),
	)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows, tenantID, false)
}

// ClaimForParsing atomically moves up to limit documents that need parsing to
// QUEUED_PARSING, stamping a fresh claim token and incrementing attempts.
// Rows locked by a concurrent claimer are skipped. limit <= 0 claims all.
func (r *DocumentRepository) ClaimForParsing(ctx context.Context, tenantID string, limit int, lease time.Duration, claimToken string) ([]*domain.Document, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	docTable := table(schema, "document")

	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`WITH cte AS (
			 SELECT id
			 FROM %[1]s
			 WHERE deleted_at IS NULL
			   AND (status = $1 OR (status = $2 AND (claimed_at IS NULL OR claimed_at < now() - make_interval(secs => $3))))
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $4
		 )
		 UPDATE %[1]s AS d
		 SET status = $2,
		     claim_token = $5::uuid,
		     claimed_at = now(),
		     attempts = d.attempts + 1,
		     updated_at = now()
		 FROM cte
		 WHERE d.id = cte.id
		 RETURNING d.id::text, d.project_id::text, d.uploaded_name, d.source_url, d.metadata, d.status, d.parsed_text,
		           d.summary, d.uploaded_by, d.attempts, d.last_error, d.claim_token::text, d.claimed_at,
		           d.created_at, d.updated_at, d.deleted_at, d.bytes`, docTable),
		string(domain.DocumentStatusPending), string(domain.DocumentStatusQueuedParsing), lease.Seconds(),
		limitArg, claimToken,
	)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows, tenantID, true)
}

// Advance applies a conditional status change. It returns false, without
// error, when the document is not in the expected state or the claim token no
// longer matches.
func (r *DocumentRepository) Advance(ctx context.Context, tenantID string, p domain.Transition) (bool, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return false, err
	}
	cmdTag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s
		 SET status = $1,
		     parsed_text = COALESCE($2, parsed_text),
		     summary = COALESCE($3, summary),
		     claim_token = NULL,
		     claimed_at = NULL,
		     last_error = NULL,
		     updated_at = now()
		 WHERE id::text = $4
		   AND status = $5
		   AND deleted_at IS NULL
		   AND ($6 = '' OR claim_token::text = $6)`, table(schema, "document")),
		string(p.To), p.ParsedText, p.Summary, p.DocumentID, string(p.From), p.ClaimToken,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() == 1, nil
}

// ResetOnFailure releases a failed claim. The document returns to PENDING
// while attempts < maxAttempts and becomes FAILED otherwise. The bool is
// false when the claim was already released or taken over.
func (r *DocumentRepository) ResetOnFailure(ctx context.Context, tenantID, documentID, claimToken, errMsg string, maxAttempts int) (domain.DocumentStatus, bool, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return "", false, err
	}
	var status string
	err = r.db.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s
		 SET status = CASE WHEN attempts >= $1 THEN $2 ELSE $3 END,
		     last_error = $4,
		     claim_token = NULL,
		     claimed_at = NULL,
		     updated_at = now()
		 WHERE id::text = $5
		   AND status = $6
		   AND ($7 = '' OR claim_token::text = $7)
		 RETURNING status`, table(schema, "document")),
		maxAttempts, string(domain.DocumentStatusFailed), string(domain.DocumentStatusPending),
		nullableString(errMsg), documentID, string(domain.DocumentStatusQueuedParsing), claimToken,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return domain.DocumentStatus(status), true, nil
}

// Retry moves a FAILED document back to PENDING with a fresh attempt budget.
func (r *DocumentRepository) Retry(ctx context.Context, tenantID, documentID string) (bool, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return false, err
	}
	cmdTag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET status = $1, attempts = 0, last_error = NULL, updated_at = now()
		 WHERE id::text = $2 AND status = $3 AND deleted_at IS NULL`, table(schema, "document")),
		string(domain.DocumentStatusPending), documentID, string(domain.DocumentStatusFailed),
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *DocumentRepository) SoftDelete(ctx context.Context, tenantID, documentID string) error {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return err
	}
	cmdTag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted_at = now(), updated_at = now() WHERE id::text = $1 AND deleted_at IS NULL`,
			table(schema, "document")),
		documentID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// CountByStatus computes live per-status counts.
func (r *DocumentRepository) CountByStatus(ctx context.Context, tenantID string) (*domain.StatusCounts, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	counts := &domain.StatusCounts{ByStatus: map[domain.DocumentStatus]int64{}}
	for _, st := range domain.DocumentStatuses {
		counts.ByStatus[st] = 0
	}

	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT status, COUNT(*) FROM %s WHERE deleted_at IS NULL GROUP BY status`,
			table(schema, "document")),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts.ByStatus[domain.DocumentStatus(status)] = n
		counts.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table(schema, "project"))).Scan(&counts.Projects)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// ListFailed returns documents that carry a recorded error, most recent first.
func (r *DocumentRepository) ListFailed(ctx context.Context, tenantID string, limit int) ([]*domain.Document, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s
		 WHERE deleted_at IS NULL AND last_error IS NOT NULL
		 ORDER BY updated_at DESC
		 LIMIT $1`, documentColumns, table(schema, "document")),
		limit,
	)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows, tenantID, false)
}

func collectDocuments(rows pgx.Rows, tenantID string, withBytes bool) ([]*domain.Document, error) {
	defer rows.Close()
	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows, tenantID, withBytes)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(row pgx.Row, tenantID string, withBytes bool) (*domain.Document, error) {
	doc := domain.Document{TenantID: tenantID}
	var status string
	var meta []byte
	var parsedText, summary, lastError, claimToken pgtype.Text
	dest := []any{
		&doc.ID, &doc.ProjectID, &doc.UploadedName, &doc.SourceURL, &meta, &status, &parsedText, &summary,
		&doc.UploadedBy, &doc.Attempts, &lastError, &claimToken, &doc.ClaimedAt, &doc.CreatedAt, &doc.UpdatedAt,
		&doc.DeletedAt,
	}
	if withBytes {
		dest = append(dest, &doc.Bytes)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatus(status)
	doc.Metadata = unmarshalMetadata(meta)
	if parsedText.Valid {
		doc.ParsedText = &parsedText.String
	}
	if summary.Valid {
		doc.Summary = &summary.String
	}
	if lastError.Valid {
		doc.LastError = lastError.String
	}
	if claimToken.Valid {
		doc.ClaimToken = claimToken.String
	}
	return &doc, nil
}
