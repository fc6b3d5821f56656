package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/docpipe/internal/api"
	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/service"
	"github.com/go-chi/chi/v5"
)

type RetrievalService interface {
	Search(ctx context.Context, input service.SearchInput) ([]*domain.SearchResult, error)
	Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error)
}

type SearchHandler struct {
	svc RetrievalService
}

func NewSearchHandler(svc RetrievalService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

type AskRequest struct {
	SearchRequest
	SystemPrompt string `json:"system_prompt,omitempty"`
}

func (h *SearchHandler) searchInput(w http.ResponseWriter, r *http.Request, req SearchRequest) (service.SearchInput, bool) {
	c, ok := callerFrom(w, r)
	if !ok {
		return service.SearchInput{}, false
	}
	if strings.TrimSpace(req.Query) == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return service.SearchInput{}, false
	}

	limit := domain.DefaultSearchLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	return service.SearchInput{
		TenantID:  c.tenantID,
		ProjectID: chi.URLParam(r, "projectID"),
		UserID:    c.userID,
		Query:     req.Query,
		Limit:     limit,
	}, true
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input, ok := h.searchInput(w, r, req)
	if !ok {
		return
	}

	results, err := h.svc.Search(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if results == nil {
		results = []*domain.SearchResult{}
	}

	api.Success(w, http.StatusOK, results)
}

func (h *SearchHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input, ok := h.searchInput(w, r, req.SearchRequest)
	if !ok {
		return
	}

	out, err := h.svc.Ask(r.Context(), service.AskInput{SearchInput: input, SystemPrompt: req.SystemPrompt})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, out)
}
