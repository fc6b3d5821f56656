package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReservedProjectName cannot be used for a project; it collides with the
// vectorizer's own schema.
const ReservedProjectName = "ai"

// Project groups documents inside a tenant.
type Project struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectInfo is a project with its live document count.
type ProjectInfo struct {
	Project
	DocumentCount int64 `json:"document_count"`
}

// NewProject creates a new Project instance
func NewProject(id, tenantID, name, description, createdBy string, createdAt time.Time) *Project {
	return &Project{
		ID:          id,
		TenantID:    tenantID,
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// ValidateProject validates a Project instance
func ValidateProject(p *Project) error {
	if p == nil {
		return fmt.Errorf("project cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("project ID is required")
	}

	if p.TenantID == "" {
		return fmt.Errorf("project TenantID is required")
	}

	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project Name is required")
	}

	if strings.EqualFold(strings.TrimSpace(p.Name), ReservedProjectName) {
		return ErrReservedProjectName
	}

	return nil
}
