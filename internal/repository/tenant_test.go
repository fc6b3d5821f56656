//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantRepository(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	tenants := NewTenantRepository(pool, testDimensions)

	t.Run("create provisions schema and owner", func(t *testing.T) {
		tenant := createTenant(ctx, t, tenants, "acme", "alice")

		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = 'vector_chunk')`,
			tenant.SchemaName).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists)

		role, err := tenants.GetMemberRole(ctx, tenant.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleOwner, role)

		got, err := tenants.GetByID(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, "acme", got.Name)
		assert.Equal(t, domain.SchemaNameFor(tenant.ID), got.SchemaName)
	})

	t.Run("provision is idempotent", func(t *testing.T) {
		tenant := createTenant(ctx, t, tenants, "repeat", "")
		require.NoError(t, tenants.Provision(ctx, tenant.ID))
		require.NoError(t, tenants.Provision(ctx, tenant.ID))

		err := tenants.Provision(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	})

	t.Run("duplicate name", func(t *testing.T) {
		createTenant(ctx, t, tenants, "dup", "")
		dup := domain.NewTenant(uuid.NewString(), "dup", testNow())

		err := tenants.Create(ctx, dup, nil)

		assert.ErrorIs(t, err, domain.ErrTenantAlreadyExists)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := tenants.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrTenantNotFound)

		err = tenants.AddMember(ctx, &domain.TenantMember{TenantID: uuid.NewString(), UserID: "bob", Role: domain.RoleMember})
		assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	})

	t.Run("add member replaces role", func(t *testing.T) {
		tenant := createTenant(ctx, t, tenants, "roles", "")
		require.NoError(t, tenants.AddMember(ctx, &domain.TenantMember{TenantID: tenant.ID, UserID: "bob", Role: domain.RoleMember, CreatedAt: testNow()}))
		require.NoError(t, tenants.AddMember(ctx, &domain.TenantMember{TenantID: tenant.ID, UserID: "bob", Role: domain.RoleAdmin, CreatedAt: testNow()}))

		role, err := tenants.GetMemberRole(ctx, tenant.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, role)
	})

	t.Run("list ids and pages", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))
		for _, name := range []string{"t1", "t2", "t3"} {
			createTenant(ctx, t, tenants, name, "")
		}

		ids, err := tenants.ListIDs(ctx)
		require.NoError(t, err)
		assert.Len(t, ids, 3)

		page, err := tenants.ListWithCursor(ctx, nil, 2)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.True(t, page.HasMore)
		assert.NotEmpty(t, page.NextCursor)
	})
}
