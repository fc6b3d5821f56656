package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type TenantPageResult struct {
	Items      []*domain.Tenant
	NextCursor string
	HasMore    bool
}

// TenantRepository manages the shared tenant directory and provisions each
// tenant's schema.
type TenantRepository struct {
	pool       *pgxpool.Pool
	dimensions int
}

func NewTenantRepository(pool *pgxpool.Pool, dimensions int) *TenantRepository {
	return &TenantRepository{pool: pool, dimensions: dimensions}
}

// Create registers the tenant, provisions its schema and, when owner is set,
// adds the owner membership, all in one transaction.
func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant, owner *domain.TenantMember) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO tenants (id, name, schema_name, created_at) VALUES ($1, $2, $3, $4)`,
		tenant.ID, tenant.Name, tenant.SchemaName, tenant.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrTenantAlreadyExists
		}
		return err
	}

	if _, err := tx.Exec(ctx, tenantDDL(tenant.SchemaName, r.dimensions)); err != nil {
		return fmt.Errorf("provision tenant schema: %w", err)
	}

	if owner != nil {
		if err := addMember(ctx, tx, owner); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Provision re-applies the tenant DDL. It is idempotent and used after
// upgrades that add tables.
func (r *TenantRepository) Provision(ctx context.Context, tenantID string) error {
	schema, err := resolveSchema(ctx, r.pool, tenantID)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, tenantDDL(schema, r.dimensions))
	return err
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, name, schema_name, created_at FROM tenants WHERE id::text = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.SchemaName, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListIDs returns every tenant ID. The orchestrator calls it at the start of
// each cycle.
func (r *TenantRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text FROM tenants ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *TenantRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*TenantPageResult, error) {
	limit = pagination.ClampLimit(limit, 20, 500)

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.pool.Query(ctx,
			`SELECT id::text, name, schema_name, created_at FROM tenants
			 WHERE (created_at, id::text) < ($1, $2)
			 ORDER BY created_at DESC, id::text DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT id::text, name, schema_name, created_at FROM tenants
			 ORDER BY created_at DESC, id::text DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.SchemaName, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(tenants) > limit
	if hasMore {
		tenants = tenants[:limit]
	}

	var nextCursor string
	if hasMore && len(tenants) > 0 {
		last := tenants[len(tenants)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &TenantPageResult{
		Items:      tenants,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// AddMember inserts or updates a membership.
func (r *TenantRepository) AddMember(ctx context.Context, member *domain.TenantMember) error {
	if _, err := resolveSchema(ctx, r.pool, member.TenantID); err != nil {
		return err
	}
	return addMember(ctx, r.pool, member)
}

func addMember(ctx context.Context, db dbtx, member *domain.TenantMember) error {
	_, err := db.Exec(ctx,
		`INSERT INTO tenant_members (tenant_id, user_id, role, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		member.TenantID, member.UserID, string(member.Role), member.CreatedAt,
	)
	return err
}

// GetMemberRole returns the user's role in the tenant. An unknown tenant is
// reported before a missing membership.
func (r *TenantRepository) GetMemberRole(ctx context.Context, tenantID, userID string) (domain.Role, error) {
	if _, err := resolveSchema(ctx, r.pool, tenantID); err != nil {
		return "", err
	}
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM tenant_members WHERE tenant_id::text = $1 AND user_id = $2`,
		tenantID, userID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrMemberNotFound
		}
		return "", err
	}
	return domain.Role(role), nil
}
