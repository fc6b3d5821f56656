package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/docpipe/internal/cli"
	"github.com/cloo-solutions/docpipe/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docpipe",
		Short: "Docpipe CLI - document ingestion and retrieval",
		Long: `Docpipe CLI uploads documents, tracks their ingestion and queries them.

Environment variables:
  DOCPIPE_TOKEN     API token (required)
  DOCPIPE_API_URL   API base URL (default: http://localhost:8080)
  DOCPIPE_TENANT    Default tenant ID
  DOCPIPE_PROJECT   Default project ID`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("token", "", "API token (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	rootCmd.PersistentFlags().String("tenant", "", "Tenant ID (overrides env and config)")
	rootCmd.PersistentFlags().String("project", "", "Project ID (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AuthCmd())
	rootCmd.AddCommand(client.ProjectCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.DocumentsCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.RetryCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.AskCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
