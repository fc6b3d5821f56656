package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	TenantID    string
	UserID      string
	Name        string
	Description string
}

// ProjectService manages projects inside a tenant.
type ProjectService struct {
	access   *AccessService
	projects ProjectRepository
	uuidGen  UUIDGenerator
	now      func() time.Time
}

func NewProjectService(access *AccessService, projects ProjectRepository) *ProjectService {
	return NewProjectServiceWithUUIDGen(access, projects, &DefaultUUIDGenerator{})
}

// NewProjectServiceWithUUIDGen creates a ProjectService with a custom UUID generator (for testing)
func NewProjectServiceWithUUIDGen(access *AccessService, projects ProjectRepository, uuidGen UUIDGenerator) *ProjectService {
	return &ProjectService{
		access:   access,
		projects: projects,
		uuidGen:  uuidGen,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a project. Only owners and admins may create projects and the
// reserved name is refused.
func (s *ProjectService) Create(ctx context.Context, input CreateProjectInput) (*domain.Project, error) {
	if _, _, err := s.access.Authorize(ctx, input.TenantID, input.UserID, domain.ManagerRoles); err != nil {
		return nil, err
	}

	project := domain.NewProject(s.uuidGen.NewString(), input.TenantID, input.Name, input.Description, input.UserID, s.now())
	if err := domain.ValidateProject(project); err != nil {
		return nil, asValidationError(err)
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// List returns the tenant's projects with their document counts.
func (s *ProjectService) List(ctx context.Context, tenantID, userID string) ([]*domain.ProjectInfo, error) {
	if _, _, err := s.access.Authorize(ctx, tenantID, userID, domain.AllRoles); err != nil {
		return nil, err
	}
	return s.projects.ListWithCounts(ctx, tenantID)
}

// Get returns a single project.
func (s *ProjectService) Get(ctx context.Context, tenantID, userID, projectID string) (*domain.Project, error) {
	if _, _, err := s.access.Authorize(ctx, tenantID, userID, domain.AllRoles); err != nil {
		return nil, err
	}
	return s.projects.GetByID(ctx, tenantID, projectID)
}
