package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	errNoTenant  = fmt.Errorf("tenant not set (use --tenant, %s or 'docpipe auth login --tenant')", envTenant)
	errNoProject = fmt.Errorf("project not set (use --project, %s or 'docpipe auth login --project')", envProject)
)

type APIClient struct {
	baseURL    string
	token      string
	tenantID   string
	projectID  string
	httpClient *http.Client
}

// NewAPIClientWithCmd creates an APIClient with config cascade: flag → env → global config → default
// If cmd is nil, skips flag checking and goes directly to env → global config
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()

	var token, baseURL, tenantID, projectID string

	if cmd != nil {
		token = stringFlag(cmd, "token")
		baseURL = stringFlag(cmd, "api-url")
		tenantID = stringFlag(cmd, "tenant")
		projectID = stringFlag(cmd, "project")
	}

	token = firstNonEmpty(token, os.Getenv(envToken))
	baseURL = firstNonEmpty(baseURL, os.Getenv(envAPIURL))
	tenantID = firstNonEmpty(tenantID, os.Getenv(envTenant))
	projectID = firstNonEmpty(projectID, os.Getenv(envProject))

	if token == "" || baseURL == "" || tenantID == "" || projectID == "" {
		globalConfig, err := LoadGlobalConfig()
		if err != nil {
			return nil, err
		}
		if globalConfig != nil {
			token = firstNonEmpty(token, globalConfig.Token)
			baseURL = firstNonEmpty(baseURL, globalConfig.APIURL)
			tenantID = firstNonEmpty(tenantID, globalConfig.TenantID)
			projectID = firstNonEmpty(projectID, globalConfig.ProjectID)
		}
	}

	if token == "" {
		return nil, fmt.Errorf("%s not set (run 'docpipe auth login' or set environment variable)", envToken)
	}

	return NewAPIClientWithConfig(token, firstNonEmpty(baseURL, defaultAPIURL), tenantID, projectID), nil
}

// NewAPIClientWithConfig creates an APIClient with explicit config.
func NewAPIClientWithConfig(token, baseURL, tenantID, projectID string) *APIClient {
	return &APIClient{
		baseURL:   baseURL,
		token:     token,
		tenantID:  tenantID,
		projectID: projectID,
		httpClient: &http.Client{
			// Ask waits on a completion model.
			Timeout: 2 * time.Minute,
		},
	}
}

func stringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// tenantPath prefixes suffix with the selected tenant.
func (c *APIClient) tenantPath(suffix string) (string, error) {
	if c.tenantID == "" {
		return "", errNoTenant
	}
	return "/tenants/" + url.PathEscape(c.tenantID) + suffix, nil
}

// projectPath prefixes suffix with the selected tenant and project.
func (c *APIClient) projectPath(suffix string) (string, error) {
	if c.projectID == "" {
		return "", errNoProject
	}
	return c.tenantPath("/projects/" + url.PathEscape(c.projectID) + suffix)
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// Decode unmarshals the response data into v.
func (r *APIResponse) Decode(v any) error {
	if len(r.Data) == 0 {
		return errors.New("empty response")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request.
func (c *APIClient) Get(path string) (*APIResponse, error) {
	return c.doJSON(http.MethodGet, path, nil)
}

// Post performs a POST request with JSON body.
func (c *APIClient) Post(path string, body any) (*APIResponse, error) {
	return c.doJSON(http.MethodPost, path, body)
}

// Delete performs a DELETE request.
func (c *APIClient) Delete(path string) (*APIResponse, error) {
	return c.doJSON(http.MethodDelete, path, nil)
}

func (c *APIClient) doJSON(method, path string, body any) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}
	return c.do(method, path, reqBody, -1, "application/json")
}

// Upload describes a multipart document upload.
type Upload struct {
	FilePath string
	Fields   map[string]string
}

// PostFile uploads a file as the "file" part of a multipart form, with
// Fields as extra form values.
func (c *APIClient) PostFile(path string, upload Upload, onProgress ProgressFunc) (*APIResponse, error) {
	file, err := os.Open(upload.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range upload.Fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}
	part, err := mw.CreateFormFile("file", filepath.Base(upload.FilePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	size := int64(buf.Len())
	var body io.Reader = &buf
	if onProgress != nil {
		body = &progressReader{reader: &buf, total: size, onProgress: onProgress}
	}
	return c.do(http.MethodPost, path, body, size, mw.FormDataContentType())
}

func (c *APIClient) do(method, path string, body io.Reader, size int64, contentType string) (*APIResponse, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			if resp.StatusCode >= 400 {
				return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
			}
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       apiResp.Code,
			Message:    apiResp.Error,
		}
	}

	return &apiResp, nil
}

// ProgressFunc is a callback for reporting upload progress.
type ProgressFunc func(current, total int64)

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader     io.Reader
	total      int64
	current    int64
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if pr.onProgress != nil {
		pr.onProgress(pr.current, pr.total)
	}
	return n, err
}
