package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/docpipe/internal/api/handlers"
	"github.com/cloo-solutions/docpipe/internal/jobs"
	"github.com/cloo-solutions/docpipe/internal/server"
	"github.com/cloo-solutions/docpipe/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the docpipe API server.

Unless --no-vectorizer is given, the server also runs the embedding stage on
DOCPIPE_VECTORIZER_INTERVAL, moving parsed documents to READY.`,
		RunE: runServe,
	}
	addMigrateFlag(cmd)
	cmd.Flags().Bool("no-vectorizer", false, "Do not run the embedding stage in this process")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	documentService := service.NewDocumentService(c.access, c.projects, c.documents, c.lifecycle)
	projectService := service.NewProjectService(c.access, c.projects)
	retrievalService := rt.retrievalService(c)

	if !cfg.HasJWT() {
		return errors.New("DOCPIPE_JWT_SECRET is required to serve the API")
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:          rt.log,
		JWTSecret:       []byte(cfg.JWTSecret),
		ProjectHandler:  handlers.NewProjectHandler(projectService),
		DocumentHandler: handlers.NewDocumentHandler(documentService),
		SearchHandler:   handlers.NewSearchHandler(retrievalService),
	})

	var vectorizer *jobs.Worker
	noVectorizer, _ := cmd.Flags().GetBool("no-vectorizer")
	if !noVectorizer && cfg.VectorizerEnabled && c.openai != nil {
		svc := service.NewVectorizeService(c.txRunner, c.openai, service.VectorizeConfig{
			BatchSize:   cfg.VectorizerBatchSize,
			MaxAttempts: cfg.WorkerMaxAttempts,
		})
		vectorizer = jobs.NewWorker("vectorizer", jobs.NewVectorizerProcessor(c.tenants, svc), cfg.VectorizerInterval, jobs.WithRunOnStart())
		go vectorizer.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		rt.log.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	rt.log.Info("shutting down")

	if vectorizer != nil {
		vectorizer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	rt.log.Info("server exited")
	return nil
}
