package service

import (
	"context"
	"errors"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// AccessService checks that a user may act inside a tenant.
type AccessService struct {
	tenants TenantDirectory
}

func NewAccessService(tenants TenantDirectory) *AccessService {
	return &AccessService{tenants: tenants}
}

// Authorize resolves the tenant and verifies the user's role is one of
// allowed. An unknown tenant yields ErrTenantNotFound, a missing or
// insufficient membership ErrAccessDenied.
func (s *AccessService) Authorize(ctx context.Context, tenantID, userID string, allowed []domain.Role) (*domain.Tenant, domain.Role, error) {
	if userID == "" {
		return nil, "", domain.ErrUnauthenticated
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, "", err
	}

	role, err := s.tenants.GetMemberRole(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, "", domain.ErrAccessDenied
		}
		return nil, "", err
	}

	if !domain.RoleAllowed(role, allowed) {
		return nil, "", domain.ErrAccessDenied
	}

	return tenant, role, nil
}
