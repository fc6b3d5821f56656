package client

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Project represents a project from the API.
type Project struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectCmd creates the project command group.
func ProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(projectCreateCmd())
	cmd.AddCommand(projectListCmd())
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project in the current tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path, err := api.tenantPath("/projects")
			if err != nil {
				return err
			}

			resp, err := api.Post(path, map[string]string{"name": args[0], "description": description})
			if err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}
			var project Project
			if err := resp.Decode(&project); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantsJSON(cmd) {
				return printJSON(out, project)
			}
			fmt.Fprintf(out, "Created project %s (%s)\n", project.Name, project.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	return cmd
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects in the current tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path, err := api.tenantPath("/projects")
			if err != nil {
				return err
			}

			resp, err := api.Get(path)
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}
			var projects []Project
			if err := resp.Decode(&projects); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if wantsJSON(cmd) {
				return printJSON(out, projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects found.")
				return nil
			}
			for _, p := range projects {
				fmt.Fprintf(out, "%-36s  %s\n", p.ID, p.Name)
			}
			return nil
		},
	}
}
