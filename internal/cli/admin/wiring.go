package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docpipe/internal/embedcache"
	"github.com/cloo-solutions/docpipe/internal/openai"
	"github.com/cloo-solutions/docpipe/internal/parser"
	"github.com/cloo-solutions/docpipe/internal/repository"
	"github.com/cloo-solutions/docpipe/internal/service"
	"github.com/cloo-solutions/docpipe/internal/storage"
	"go.uber.org/zap"
)

// components are the repositories and services shared by serve and worker.
type components struct {
	tenants   *repository.TenantRepository
	projects  *repository.ProjectRepository
	documents *repository.DocumentRepository
	chunks    *repository.VectorChunkRepository
	txRunner  *repository.TxRunner
	access    *service.AccessService
	lifecycle *service.LifecycleManager
	openai    *openai.Client
}

func (rt *runtime) components() (*components, error) {
	cfg := rt.cfg
	c := &components{
		tenants:   repository.NewTenantRepository(rt.pool, cfg.EmbeddingDimensions),
		projects:  repository.NewProjectRepository(rt.pool),
		documents: repository.NewDocumentRepository(rt.pool),
		chunks:    repository.NewVectorChunkRepository(rt.pool),
		txRunner:  repository.NewTxRunner(rt.pool),
	}
	c.access = service.NewAccessService(c.tenants)
	c.lifecycle = service.NewLifecycleManager(c.documents, c.txRunner, cfg.WorkerMaxAttempts)

	if cfg.HasOpenAI() {
		client, err := openai.NewClient(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      cfg.OpenAIEmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			ChatModel:           cfg.OpenAIChatModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		c.openai = client
	} else {
		rt.log.Warn("OPENAI_API_KEY not set: search, rag and vectorization are disabled")
	}
	return c, nil
}

// retrievalService wires the search path. Interfaces stay nil, not typed nil
// pointers, when no OpenAI key is configured so the service reports
// UNAVAILABLE.
func (rt *runtime) retrievalService(c *components) *service.RetrievalService {
	cfg := service.RetrievalServiceConfig{
		Access:   c.access,
		Projects: c.projects,
		Chunks:   c.chunks,
	}
	if c.openai != nil {
		cfg.Embedder = embedcache.Wrap(c.openai, rt.cfg.OpenAIEmbeddingModel, rt.cfg.EmbeddingCacheSize, rt.cfg.EmbeddingCacheTTL)
		cfg.Completer = c.openai
	}
	return service.NewRetrievalService(cfg)
}

// parsing builds the stager and the parser router. Plain-text formats are
// read locally; everything else goes to LlamaParse when it is configured.
func (rt *runtime) parsing(ctx context.Context) (parser.Stager, parser.Parser, error) {
	cfg := rt.cfg

	var fallback parser.Parser
	var stager parser.Stager = parser.NewTempFileStager(cfg.StagingDir)
	if cfg.HasLlamaParse() {
		client, err := parser.NewLlamaParseClient(parser.LlamaParseConfig{
			APIKey:            cfg.LlamaParseAPIKey,
			BaseURL:           cfg.LlamaParseBaseURL,
			AutoMode:          cfg.LlamaParseAuto,
			RequestsPerSecond: cfg.LlamaParseRPS,
			Timeout:           cfg.ParseTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		fallback = client
	} else {
		rt.log.Warn("LLAMAPARSE_API_KEY not set: only plain-text documents will be parsed")
	}

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
			URLExpiry:       cfg.S3URLExpiry,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		rt.log.Info("staging documents in object storage", zap.String("bucket", s3Client.Bucket()))
		stager = parser.NewObjectStager(s3Client, "")
	}

	router := parser.NewRouter(fallback).Handle(parser.NewPlainTextParser(), parser.PlainTextTypes...)
	return stager, router, nil
}
