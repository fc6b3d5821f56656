package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/docpipe/internal/api"
	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/service"
	"github.com/go-chi/chi/v5"
)

type ProjectService interface {
	Create(ctx context.Context, input service.CreateProjectInput) (*domain.Project, error)
	List(ctx context.Context, tenantID, userID string) ([]*domain.ProjectInfo, error)
	Get(ctx context.Context, tenantID, userID, projectID string) (*domain.Project, error)
}

type ProjectHandler struct {
	svc ProjectService
}

func NewProjectHandler(svc ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	project, err := h.svc.Create(r.Context(), service.CreateProjectInput{
		TenantID:    c.tenantID,
		UserID:      c.userID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, project)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(w, r)
	if !ok {
		return
	}

	project, err := h.svc.Get(r.Context(), c.tenantID, c.userID, chi.URLParam(r, "projectID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, project)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(w, r)
	if !ok {
		return
	}

	projects, err := h.svc.List(r.Context(), c.tenantID, c.userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if projects == nil {
		projects = []*domain.ProjectInfo{}
	}

	api.Success(w, http.StatusOK, projects)
}
