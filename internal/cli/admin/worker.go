package admin

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/docpipe/internal/jobs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const ingestJob = "ingest"

// WorkerCmd returns the worker command
func WorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the ingestion worker",
		Long: `Run the ingestion worker.

Every cycle claims pending documents in all tenants, parses them and stores
their vectorizable text. Cycles run on a cron schedule (five fields, e.g.
"*/5 * * * *") and never overlap; a tick that fires while a cycle is still
running is skipped.`,
		RunE: runWorker,
	}
	addMigrateFlag(cmd)
	cmd.Flags().Bool("once", false, "Run a single cycle and exit")
	cmd.Flags().Bool("dry-run", false, "List documents the next cycle would claim and exit")
	cmd.Flags().String("schedule", "", "Cron schedule (overrides DOCPIPE_WORKER_SCHEDULE)")
	return cmd
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, runtimeOptions{migrate: wantsMigrate(cmd), telemetry: true})
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx = rt.context(ctx)
	cfg := rt.cfg

	c, err := rt.components()
	if err != nil {
		return err
	}
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return listNeedingParse(ctx, cmd.OutOrStdout(), c, cfg.WorkerLease)
	}

	stager, parser, err := rt.parsing(ctx)
	if err != nil {
		return err
	}

	proc, err := jobs.NewIngestionProcessor(c.tenants, c.documents, c.lifecycle, stager, parser, jobs.IngestionConfig{
		BatchSize:     cfg.WorkerBatchSize,
		Lease:         cfg.WorkerLease,
		ParseTimeout:  cfg.ParseTimeout,
		DiscoveryPool: cfg.WorkerConcurrency,
	})
	if err != nil {
		return err
	}
	defer proc.Close()

	once, _ := cmd.Flags().GetBool("once")
	if once {
		report, err := proc.RunCycle(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tenants=%d claimed=%d parsed=%d persisted=%d failed=%d skipped=%d\n",
			report.Tenants, report.Claimed, report.Parsed, report.Persisted, report.Failed, report.Skipped)
		return nil
	}

	schedule, _ := cmd.Flags().GetString("schedule")
	if schedule == "" {
		schedule = cfg.WorkerSchedule
	}

	scheduler := jobs.NewCronScheduler()
	if err := scheduler.AddJob(ingestJob, schedule, proc, cfg.WorkerCycleTimeout); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	scheduler.Start(ctx, true)
	rt.log.Info("worker running", zap.String("schedule", schedule))

	<-ctx.Done()
	rt.log.Info("shutting down, waiting for the current cycle")
	scheduler.Stop()
	return nil
}

func listNeedingParse(ctx context.Context, out io.Writer, c *components, lease time.Duration) error {
	tenantIDs, err := c.tenants.ListIDs(ctx)
	if err != nil {
		return err
	}
	total := 0
	for _, tenantID := range tenantIDs {
		docs, err := c.documents.ListNeedingParse(ctx, tenantID, lease)
		if err != nil {
			return fmt.Errorf("tenant %s: %w", tenantID, err)
		}
		for _, doc := range docs {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\tattempts=%d\n", tenantID, doc.ID, doc.Status, doc.UploadedName, doc.Attempts)
		}
		total += len(docs)
	}
	fmt.Fprintf(out, "%d document(s) across %d tenant(s)\n", total, len(tenantIDs))
	return nil
}
