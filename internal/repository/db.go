package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx. Begin on a pgx.Tx
// opens a savepoint.
type dbtx interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// resolveSchema looks the tenant up in the shared directory on every call.
// Unknown tenants never reach a tenant-scoped query.
func resolveSchema(ctx context.Context, db dbtx, tenantID string) (string, error) {
	if tenantID == "" {
		return "", domain.ErrTenantNotFound
	}
	var schema string
	err := db.QueryRow(ctx, `SELECT schema_name FROM tenants WHERE id::text = $1`, tenantID).Scan(&schema)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrTenantNotFound
		}
		return "", fmt.Errorf("resolve tenant schema: %w", err)
	}
	return schema, nil
}

// table returns a quoted, schema-qualified table name.
func table(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}

func unmarshalMetadata(raw []byte) map[string]any {
	meta := map[string]any{}
	if len(raw) == 0 {
		return meta
	}
	_ = json.Unmarshal(raw, &meta)
	return meta
}
