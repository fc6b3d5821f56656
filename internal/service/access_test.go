package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAccessService_Authorize(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		setup   func(*MockTenantRepository)
		allowed []domain.Role
		wantErr error
		want    domain.Role
	}{
		{
			name:   "member allowed for reads",
			userID: testUserID,
			setup: func(m *MockTenantRepository) {
				memberOf(m, testTenantID, testUserID, domain.RoleMember)
			},
			allowed: domain.AllRoles,
			want:    domain.RoleMember,
		},
		{
			name:   "member refused for management",
			userID: testUserID,
			setup: func(m *MockTenantRepository) {
				memberOf(m, testTenantID, testUserID, domain.RoleMember)
			},
			allowed: domain.ManagerRoles,
			wantErr: domain.ErrAccessDenied,
		},
		{
			name:   "non member refused",
			userID: testUserID,
			setup: func(m *MockTenantRepository) {
				m.On("GetByID", mock.Anything, testTenantID).Return(&domain.Tenant{ID: testTenantID}, nil)
				m.On("GetMemberRole", mock.Anything, testTenantID, testUserID).
					Return(domain.Role(""), domain.ErrMemberNotFound)
			},
			allowed: domain.AllRoles,
			wantErr: domain.ErrAccessDenied,
		},
		{
			name:   "unknown tenant",
			userID: testUserID,
			setup: func(m *MockTenantRepository) {
				m.On("GetByID", mock.Anything, testTenantID).Return(nil, domain.ErrTenantNotFound)
			},
			allowed: domain.AllRoles,
			wantErr: domain.ErrTenantNotFound,
		},
		{
			name:    "anonymous",
			userID:  "",
			setup:   func(m *MockTenantRepository) {},
			allowed: domain.AllRoles,
			wantErr: domain.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenants := new(MockTenantRepository)
			tt.setup(tenants)
			svc := NewAccessService(tenants)

			tenant, role, err := svc.Authorize(context.Background(), testTenantID, tt.userID, tt.allowed)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Nil(t, tenant)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, role)
			assert.Equal(t, testTenantID, tenant.ID)
		})
	}
}

func TestAccessService_Authorize_DirectoryError(t *testing.T) {
	tenants := new(MockTenantRepository)
	tenants.On("GetByID", mock.Anything, testTenantID).Return(&domain.Tenant{ID: testTenantID}, nil)
	tenants.On("GetMemberRole", mock.Anything, testTenantID, testUserID).
		Return(domain.Role(""), errors.New("connection reset"))

	_, _, err := NewAccessService(tenants).Authorize(context.Background(), testTenantID, testUserID, domain.AllRoles)

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrAccessDenied))
}
