package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cloo-solutions/docpipe/internal/api"
	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/service"
	"github.com/go-chi/chi/v5"
)

const maxMultipartMemory = 32 << 20

type DocumentService interface {
	Upload(ctx context.Context, input service.UploadDocumentInput) (*domain.Document, error)
	Get(ctx context.Context, tenantID, userID, documentID string) (*domain.Document, error)
	ListRecent(ctx context.Context, input service.ListDocumentsInput) (*service.DocumentPage, error)
	Delete(ctx context.Context, tenantID, userID, documentID string) error
	Retry(ctx context.Context, tenantID, userID, documentID string) error
	Stats(ctx context.Context, tenantID, userID string) (*domain.StatusCounts, error)
	Errors(ctx context.Context, tenantID, userID string, limit int) ([]*domain.Document, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	ProjectID  string         `json:"project_id"`
	Name       string         `json:"name"`
	SourceURL  string         `json:"source_url,omitempty"`
	Status     string         `json:"status"`
	SizeBytes  int            `json:"size_bytes"`
	Attempts   int            `json:"attempts"`
	LastError  string         `json:"last_error,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	UploadedBy string         `json:"uploaded_by"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

// DocumentDetailResponse adds the original bytes and parsed text.
type DocumentDetailResponse struct {
	DocumentResponse
	Content    []byte  `json:"content,omitempty"`
	ParsedText *string `json:"parsed_text,omitempty"`
}

type DocumentListResponse struct {
	Items      []*DocumentResponse `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		TenantID:   d.TenantID,
		ProjectID:  d.ProjectID,
		Name:       d.UploadedName,
		SourceURL:  d.SourceURL,
		Status:     string(d.Status),
		SizeBytes:  len(d.Bytes),
		Attempts:   d.Attempts,
		LastError:  d.LastError,
		Metadata:   d.Metadata,
		UploadedBy: d.UploadedBy,
		CreatedAt:  d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  d.UpdatedAt.Format(time.RFC3339),
	}
}

func documentsToResponse(docs []*domain.Document) []*DocumentResponse {
	out := make([]*DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentToResponse(d))
	}
	return out
}

// Upload accepts a multipart form with a "file" part and optional
// "source_url" and "metadata" (JSON object) fields.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	var metadata map[string]any
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			api.Error(w, http.StatusBadRequest, "metadata must be a JSON object")
			return
		}
	}

	doc, err := h.svc.Upload(r.Context(), service.UploadDocumentInput{
		TenantID:  c.tenantID,
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    c.userID,
		FileName:  header.Filename,
		SourceURL: r.FormValue("source_url"),
		Data:      data,
		Metadata:  metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.Get(r.Context(), c.tenantID, c.userID, chi.URLParam(r, "documentID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &DocumentDetailResponse{
		DocumentResponse: *documentToResponse(doc),
		Content:          doc.Bytes,
		ParsedText:       doc.ParsedText,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(w, r)
	if !ok {
		return
	}

	limit, ok := queryInt(r, "limit")
	if !ok {
		api.Error(w, http.StatusBadRequest, "invalid limit")
		return
	}

	page, err := h.svc.ListRecent(r.Context(), service.ListDocumentsInput{
		TenantID:  c.tenantID,
		ProjectID: r.URL.Query().Get("project_id"),
		UserID:    c.userID,
		Cursor:    r.URL.Query().Get("cursor"),
		Limit:     limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &DocumentListResponse{
		Items:      documentsToResponse(page.Items),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), c.tenantID, c.userID, chi.URLParam(r, "documentID")); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(w, r)
	if !ok {
		return
	}

	documentID := chi.URLParam(r, "documentID")
	if err := h.svc.Retry(r.Context(), c.tenantID, c.userID, documentID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{
		"id":     documentID,
		"status": string(domain.DocumentStatusPending),
	})
}

func (h *DocumentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(r.Context(), c.tenantID, c.userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}

func (h *DocumentHandler) Errors(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(w, r)
	if !ok {
		return
	}

	limit, ok := queryInt(r, "limit")
	if !ok {
		api.Error(w, http.StatusBadRequest, "invalid limit")
		return
	}

	docs, err := h.svc.Errors(r.Context(), c.tenantID, c.userID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentsToResponse(docs))
}
