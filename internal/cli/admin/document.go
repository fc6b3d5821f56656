package admin

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// DocumentCmd returns the document command group
func DocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Operate on documents in the pipeline",
	}
	cmd.AddCommand(documentMarkReadyCmd())
	return cmd
}

func documentMarkReadyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-ready <tenant-id> <document-id>...",
		Short: "Mark embedded documents as ready",
		Long: `Mark documents as ready once an external vectorizer has embedded them.

Only documents in QUEUED_EMBEDDING move; any other document is reported and
left untouched. Use this when the server runs with --no-vectorizer.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runDocumentMarkReady,
	}
}

func runDocumentMarkReady(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := openRuntime(ctx, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx = rt.context(ctx)

	c, err := rt.components()
	if err != nil {
		return err
	}

	tenantID, documentIDs := args[0], args[1:]
	skipped := 0
	for _, id := range documentIDs {
		ok, err := c.lifecycle.MarkReady(ctx, tenantID, id)
		if err != nil {
			return fmt.Errorf("failed to mark %s ready: %w", id, err)
		}
		if !ok {
			rt.log.Warn("document not awaiting embedding", zap.String("document_id", id))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: skipped\n", id)
			skipped++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: READY\n", id)
	}
	if skipped > 0 {
		return fmt.Errorf("%d of %d document(s) were not awaiting embedding", skipped, len(documentIDs))
	}
	return nil
}
