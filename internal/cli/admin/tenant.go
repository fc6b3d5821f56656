package admin

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cloo-solutions/docpipe/internal/pagination"
	"github.com/cloo-solutions/docpipe/internal/repository"
	"github.com/cloo-solutions/docpipe/internal/service"
	"github.com/spf13/cobra"
)

// TenantCmd returns the tenant command group
func TenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
		Long:  "Create tenants, list them and manage their members.",
	}

	cmd.AddCommand(tenantCreateCmd())
	cmd.AddCommand(tenantListCmd())
	cmd.AddCommand(tenantAddMemberCmd())
	cmd.AddCommand(tenantProvisionCmd())

	return cmd
}

func tenantCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new tenant",
		Long:  "Create a new tenant and provision its schema. With --owner the user becomes the tenant owner.",
		Args:  cobra.ExactArgs(1),
		RunE:  runTenantCreate,
	}
	cmd.Flags().String("owner", "", "User ID granted the owner role")
	cmd.Flags().StringP("output", "o", "text", "Output format (text|json)")
	return cmd
}

func runTenantCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	owner, _ := cmd.Flags().GetString("owner")
	output, _ := cmd.Flags().GetString("output")

	rt, err := openRuntime(ctx, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	tenants := service.NewTenantService(repository.NewTenantRepository(rt.pool, rt.cfg.EmbeddingDimensions), &service.DefaultUUIDGenerator{})
	tenant, err := tenants.CreateTenant(rt.context(ctx), args[0], owner)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	if output == "json" {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"id":          tenant.ID,
			"name":        tenant.Name,
			"schema_name": tenant.SchemaName,
		})
	}
	fmt.Printf("Tenant created:\n")
	fmt.Printf("  ID:     %s\n", tenant.ID)
	fmt.Printf("  Name:   %s\n", tenant.Name)
	fmt.Printf("  Schema: %s\n", tenant.SchemaName)
	if owner != "" {
		fmt.Printf("  Owner:  %s\n", owner)
	}
	return nil
}

func tenantListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE:  runTenantList,
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text|json)")
	cmd.Flags().Int("limit", 20, "Maximum number of tenants to return")
	cmd.Flags().String("cursor", "", "Cursor for pagination (from previous response)")
	return cmd
}

type tenantListItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SchemaName string    `json:"schema_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type tenantListResponse struct {
	Tenants    []tenantListItem `json:"tenants"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

func runTenantList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	output, _ := cmd.Flags().GetString("output")
	limit, _ := cmd.Flags().GetInt("limit")
	cursorStr, _ := cmd.Flags().GetString("cursor")

	var cursor *pagination.Cursor
	if cursorStr != "" {
		var err error
		cursor, err = pagination.DecodeCursor(cursorStr)
		if err != nil {
			return fmt.Errorf("invalid cursor: %w", err)
		}
	}

	rt, err := openRuntime(ctx, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	page, err := repository.NewTenantRepository(rt.pool, rt.cfg.EmbeddingDimensions).ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if output == "json" {
		resp := tenantListResponse{Tenants: []tenantListItem{}, NextCursor: page.NextCursor, HasMore: page.HasMore}
		for _, t := range page.Items {
			resp.Tenants = append(resp.Tenants, tenantListItem{ID: t.ID, Name: t.Name, SchemaName: t.SchemaName, CreatedAt: t.CreatedAt})
		}
		return json.NewEncoder(os.Stdout).Encode(resp)
	}

	if len(page.Items) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}
	fmt.Printf("%-36s  %-24s  %s\n", "ID", "NAME", "CREATED")
	for _, t := range page.Items {
		fmt.Printf("%-36s  %-24s  %s\n", t.ID, t.Name, t.CreatedAt.Format(time.RFC3339))
	}
	if page.HasMore {
		fmt.Printf("\nMore results available. Use --cursor %s\n", page.NextCursor)
	}
	return nil
}

func tenantAddMemberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-member <tenant-id> <user-id>",
		Short: "Grant a user a role in a tenant",
		Long:  "Grant a user a role in a tenant. An existing membership is replaced.",
		Args:  cobra.ExactArgs(2),
		RunE:  runTenantAddMember,
	}
	cmd.Flags().String("role", "member", "Role to grant (owner|admin|member)")
	return cmd
}

func runTenantAddMember(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	role, _ := cmd.Flags().GetString("role")

	rt, err := openRuntime(ctx, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	tenants := service.NewTenantService(repository.NewTenantRepository(rt.pool, rt.cfg.EmbeddingDimensions), &service.DefaultUUIDGenerator{})
	member, err := tenants.AddMember(rt.context(ctx), args[0], args[1], role)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	fmt.Printf("User %s is now %s of tenant %s\n", member.UserID, member.Role, member.TenantID)
	return nil
}

func tenantProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision [tenant-id...]",
		Short: "Re-apply tenant schema DDL",
		Long: `Re-apply the per-tenant schema DDL. Provisioning is idempotent; run it after
an upgrade that adds tenant tables or indexes. With no arguments every tenant
is provisioned.`,
		RunE: runTenantProvision,
	}
}

func runTenantProvision(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := openRuntime(ctx, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	repo := repository.NewTenantRepository(rt.pool, rt.cfg.EmbeddingDimensions)
	tenantIDs := args
	if len(tenantIDs) == 0 {
		if tenantIDs, err = repo.ListIDs(ctx); err != nil {
			return fmt.Errorf("failed to list tenants: %w", err)
		}
	}

	for _, id := range tenantIDs {
		if err := repo.Provision(ctx, id); err != nil {
			return fmt.Errorf("failed to provision tenant %s: %w", id, err)
		}
		fmt.Printf("Provisioned %s\n", id)
	}
	return nil
}
