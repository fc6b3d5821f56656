package domain

import (
	"fmt"
	"strings"
	"time"
)

// Tenant is an isolated organization. Each tenant owns a dedicated Postgres
// schema holding its projects, documents and vector tables.
type Tenant struct {
	ID         string
	Name       string
	SchemaName string
	CreatedAt  time.Time
}

// Role is a member's role inside a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// AllRoles is accepted by read operations.
var AllRoles = []Role{RoleOwner, RoleAdmin, RoleMember}

// ManagerRoles is required to create or modify projects.
var ManagerRoles = []Role{RoleOwner, RoleAdmin}

// TenantMember links a user to a tenant with a role.
type TenantMember struct {
	TenantID  string
	UserID    string
	Role      Role
	CreatedAt time.Time
}

// NewTenant creates a Tenant whose schema name is derived from its ID.
func NewTenant(id, name string, createdAt time.Time) *Tenant {
	return &Tenant{
		ID:         id,
		Name:       name,
		SchemaName: SchemaNameFor(id),
		CreatedAt:  createdAt,
	}
}

// SchemaNameFor derives the schema name from a tenant ID. User input never
// reaches the schema name.
func SchemaNameFor(tenantID string) string {
	return "tenant_" + strings.ReplaceAll(strings.ToLower(tenantID), "-", "")
}

// ValidateTenant validates a Tenant instance
func ValidateTenant(t *Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("tenant ID is required")
	}

	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tenant Name is required")
	}

	if t.SchemaName != SchemaNameFor(t.ID) {
		return fmt.Errorf("tenant SchemaName does not match ID")
	}

	return nil
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	}
	return "", ErrInvalidRole
}

// RoleAllowed reports whether role is one of allowed.
func RoleAllowed(role Role, allowed []Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
