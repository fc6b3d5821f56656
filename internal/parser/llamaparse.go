package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultLlamaParseBaseURL = "https://api.cloud.llamaindex.ai"

	defaultPollInterval = 2 * time.Second
	defaultParseTimeout = 5 * time.Minute
	maxErrorBody        = 4 << 10
)

// Job states reported by the LlamaParse API.
const (
	jobPending  = "PENDING"
	jobSuccess  = "SUCCESS"
	jobError    = "ERROR"
	jobCanceled = "CANCELED"
)

var (
	// ErrParseJobFailed is returned when the remote job ends in ERROR or CANCELED.
	ErrParseJobFailed = errors.New("parse job failed")
	// ErrNoInput is returned when a Source has neither a path nor a URL.
	ErrNoInput = errors.New("source has neither path nor url")
	// ErrDocumentTooLarge is returned when a document exceeds what a local
	// parser will read.
	ErrDocumentTooLarge = errors.New("document too large to parse")
)

// LlamaParseConfig configures the LlamaParse REST client.
type LlamaParseConfig struct {
	APIKey            string
	BaseURL           string
	AutoMode          bool
	RequestsPerSecond float64
	Burst             int
	PollInterval      time.Duration
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// LlamaParseClient parses documents with the LlamaParse REST API: upload,
// poll the job until it settles, then fetch the markdown result.
type LlamaParseClient struct {
	apiKey       string
	baseURL      string
	autoMode     bool
	pollInterval time.Duration
	timeout      time.Duration
	http         *http.Client
	limiter      *rate.Limiter
}

func NewLlamaParseClient(cfg LlamaParseConfig) (*LlamaParseClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llamaparse API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLlamaParseBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultParseTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &LlamaParseClient{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		autoMode:     cfg.AutoMode,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		http:         cfg.HTTPClient,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error_message,omitempty"`
}

type markdownResponse struct {
	Markdown string `json:"markdown"`
}

// Parse uploads src and blocks until the job settles or the per-document
// timeout expires.
func (c *LlamaParseClient) Parse(ctx context.Context, src Source) (*domain.ParsedDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := logging.FromContext(ctx).With(zap.Any("document_id", src.Metadata[domain.MetaDocumentID]))

	job, err := c.upload(ctx, src)
	if err != nil {
		return nil, err
	}
	log.Debug("parse job submitted", zap.String("job_id", job.ID))

	if err := c.wait(ctx, job); err != nil {
		return nil, err
	}

	var result markdownResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/parsing/job/"+job.ID+"/result/markdown", nil, "", &result); err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	log.Info("document parsed", zap.String("job_id", job.ID), zap.Int("chars", len(result.Markdown)))

	return echo(result.Markdown, src), nil
}

func (c *LlamaParseClient) upload(ctx context.Context, src Source) (*jobResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	switch {
	case src.Path != "":
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("open staged file: %w", err)
		}
		defer f.Close()
		part, err := w.CreateFormFile("file", filepath.Base(src.Path))
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, fmt.Errorf("read staged file: %w", err)
		}
	case src.URL != "":
		if err := w.WriteField("input_url", src.URL); err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoInput
	}

	if c.autoMode {
		if err := w.WriteField("auto_mode", "true"); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var job jobResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/parsing/upload", &body, w.FormDataContentType(), &job); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if job.ID == "" {
		return nil, errors.New("upload: response has no job id")
	}
	return &job, nil
}

func (c *LlamaParseClient) wait(ctx context.Context, job *jobResponse) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	status := job.Status
	for {
		switch strings.ToUpper(status) {
		case jobSuccess:
			return nil
		case jobError, jobCanceled:
			return fmt.Errorf("%w: job %s %s %s", ErrParseJobFailed, job.ID, status, job.Error)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("job %s: %w", job.ID, ctx.Err())
		case <-ticker.C:
		}

		var current jobResponse
		if err := c.doJSON(ctx, http.MethodGet, "/api/parsing/job/"+job.ID, nil, "", &current); err != nil {
			return fmt.Errorf("poll job %s: %w", job.ID, err)
		}
		status = current.Status
		job.Error = current.Error
	}
}

func (c *LlamaParseClient) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("llamaparse %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ Parser = (*LlamaParseClient)(nil)
