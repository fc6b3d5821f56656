//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/docpipe/internal/api/handlers"
	"github.com/cloo-solutions/docpipe/internal/auth"
	"github.com/cloo-solutions/docpipe/internal/jobs"
	"github.com/cloo-solutions/docpipe/internal/parser"
	"github.com/cloo-solutions/docpipe/internal/repository"
	"github.com/cloo-solutions/docpipe/internal/server"
	"github.com/cloo-solutions/docpipe/internal/service"
	"github.com/cloo-solutions/docpipe/internal/storage"
	"github.com/cloo-solutions/docpipe/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const (
	dimensions = 3
	jwtSecret  = "e2e-secret"
)

// keywordEmbedder maps text onto three axes so nearest-neighbour order is
// predictable without a model.
type keywordEmbedder struct{}

func (keywordEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "refund"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(text, "shipping"):
		return []float32{0, 1, 0}, nil
	}
	return []float32{0, 0, 1}, nil
}

// Env is a running API server backed by real Postgres and object storage,
// plus the pipeline stages that the worker and vectorizer would run.
type Env struct {
	T   *testing.T
	Ctx context.Context

	postgres *testutil.PostgresContainer
	rustfs   *testutil.RustFSContainer
	Pool     *pgxpool.Pool
	server   *httptest.Server

	Tenants   *service.TenantService
	Ingestion *jobs.IngestionProcessor
	Vectorize *jobs.VectorizerProcessor

	client *http.Client
}

func SetupEnv(t *testing.T) *Env {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "e2e-staging",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, s3Client.EnsureBucket(ctx))

	tenantRepo := repository.NewTenantRepository(pool, dimensions)
	projectRepo := repository.NewProjectRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	access := service.NewAccessService(tenantRepo)
	lifecycle := service.NewLifecycleManager(docRepo, txRunner, 3)
	documents := service.NewDocumentService(access, projectRepo, docRepo, lifecycle)
	projects := service.NewProjectService(access, projectRepo)
	retrieval := service.NewRetrievalService(service.RetrievalServiceConfig{
		Access:   access,
		Projects: projectRepo,
		Chunks:   repository.NewVectorChunkRepository(pool),
		Embedder: keywordEmbedder{},
	})

	router := server.NewRouter(server.RouterConfig{
		JWTSecret:       []byte(jwtSecret),
		ProjectHandler:  handlers.NewProjectHandler(projects),
		DocumentHandler: handlers.NewDocumentHandler(documents),
		SearchHandler:   handlers.NewSearchHandler(retrieval),
	})
	srv := httptest.NewServer(router)

	textParser := parser.NewRouter(nil).Handle(parser.NewPlainTextParser(), parser.PlainTextTypes...)
	ingestion, err := jobs.NewIngestionProcessor(tenantRepo, docRepo, lifecycle,
		parser.NewObjectStager(s3Client, ""), textParser, jobs.IngestionConfig{
			Lease:        time.Minute,
			ParseTimeout: 30 * time.Second,
		})
	require.NoError(t, err)

	vectorize := service.NewVectorizeService(txRunner, keywordEmbedder{}, service.VectorizeConfig{})

	return &Env{
		T:         t,
		Ctx:       ctx,
		postgres:  pgC,
		rustfs:    s3C,
		Pool:      pool,
		server:    srv,
		Tenants:   service.NewTenantService(tenantRepo, &service.DefaultUUIDGenerator{}),
		Ingestion: ingestion,
		Vectorize: jobs.NewVectorizerProcessor(tenantRepo, vectorize),
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *Env) Cleanup() {
	e.server.Close()
	e.Ingestion.Close()
	e.Pool.Close()
	e.rustfs.Terminate(e.Ctx)
	e.postgres.Terminate(e.Ctx)
}

// Token issues a bearer token for userID.
func (e *Env) Token(userID string) string {
	token, err := auth.GenerateToken(userID, []byte(jwtSecret), time.Hour)
	require.NoError(e.T, err)
	return token
}

// Response is the decoded API envelope together with the HTTP status.
type Response struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Code   string          `json:"code"`
}

// Into decodes the data field into v.
func (r *Response) Into(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), "data: %s", r.Data)
}

func (e *Env) Get(token, path string) *Response {
	return e.do(http.MethodGet, path, token, nil, "")
}

func (e *Env) Delete(token, path string) *Response {
	return e.do(http.MethodDelete, path, token, nil, "")
}

func (e *Env) Post(token, path string, body any) *Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(data)
	}
	return e.do(http.MethodPost, path, token, reader, "application/json")
}

// Upload sends a multipart document upload.
func (e *Env) Upload(token, path, fileName, content string, fields map[string]string) *Response {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.T, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("file", fileName)
	require.NoError(e.T, err)
	_, err = io.WriteString(part, content)
	require.NoError(e.T, err)
	require.NoError(e.T, w.Close())

	return e.do(http.MethodPost, path, token, &buf, w.FormDataContentType())
}

func (e *Env) do(method, path, token string, body io.Reader, contentType string) *Response {
	e.T.Helper()
	req, err := http.NewRequestWithContext(e.Ctx, method, e.server.URL+path, body)
	require.NoError(e.T, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.client.Do(req)
	require.NoError(e.T, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.T, err)

	out := &Response{Status: resp.StatusCode}
	if len(raw) > 0 {
		require.NoError(e.T, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return out
}

func tenantPath(tenantID, format string, args ...any) string {
	return "/tenants/" + tenantID + fmt.Sprintf(format, args...)
}
