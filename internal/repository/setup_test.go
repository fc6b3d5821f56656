//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const testDimensions = 3

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

func createTenant(ctx context.Context, t *testing.T, tenants *TenantRepository, name, ownerID string) *domain.Tenant {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	tenant := domain.NewTenant(uuid.NewString(), name, now)
	var owner *domain.TenantMember
	if ownerID != "" {
		owner = &domain.TenantMember{TenantID: tenant.ID, UserID: ownerID, Role: domain.RoleOwner, CreatedAt: now}
	}
	require.NoError(t, tenants.Create(ctx, tenant, owner))
	return tenant
}

func createProject(ctx context.Context, t *testing.T, projects *ProjectRepository, tenantID, name string) *domain.Project {
	t.Helper()
	project := domain.NewProject(uuid.NewString(), tenantID, name, "", "user-1", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, projects.Create(ctx, project))
	return project
}

func createDocument(ctx context.Context, t *testing.T, docs *DocumentRepository, tenantID, projectID, name string, createdAt time.Time) *domain.Document {
	t.Helper()
	doc := domain.NewDocument(uuid.NewString(), tenantID, projectID, name, "user-1", []byte("body of "+name), map[string]any{"team": "ops"}, createdAt)
	require.NoError(t, docs.Create(ctx, doc))
	return doc
}

func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
