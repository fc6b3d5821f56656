package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// TenantService provisions tenants and manages memberships.
type TenantService struct {
	tenants TenantRepository
	uuidGen UUIDGenerator
	now     func() time.Time
}

func NewTenantService(tenants TenantRepository, uuidGen UUIDGenerator) *TenantService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &TenantService{
		tenants: tenants,
		uuidGen: uuidGen,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateTenant registers a tenant, provisions its schema and, when ownerID is
// set, makes that user the owner.
func (s *TenantService) CreateTenant(ctx context.Context, name, ownerID string) (*domain.Tenant, error) {
	now := s.now()
	tenant := domain.NewTenant(s.uuidGen.NewString(), name, now)
	if err := domain.ValidateTenant(tenant); err != nil {
		return nil, asValidationError(err)
	}

	var owner *domain.TenantMember
	if ownerID != "" {
		owner = &domain.TenantMember{
			TenantID:  tenant.ID,
			UserID:    ownerID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
		}
	}

	if err := s.tenants.Create(ctx, tenant, owner); err != nil {
		return nil, err
	}
	return tenant, nil
}

// AddMember grants userID the given role in the tenant, replacing any
// existing role.
func (s *TenantService) AddMember(ctx context.Context, tenantID, userID, role string) (*domain.TenantMember, error) {
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}

	member := &domain.TenantMember{
		TenantID:  tenantID,
		UserID:    userID,
		Role:      r,
		CreatedAt: s.now(),
	}
	if err := s.tenants.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}
