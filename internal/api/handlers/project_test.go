package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) Create(ctx context.Context, input service.CreateProjectInput) (*domain.Project, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) List(ctx context.Context, tenantID, userID string) ([]*domain.ProjectInfo, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ProjectInfo), args.Error(1)
}

func (m *MockProjectService) Get(ctx context.Context, tenantID, userID, projectID string) (*domain.Project, error) {
	args := m.Called(ctx, tenantID, userID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func testProject() *domain.Project {
	return domain.NewProject(testProjectID, testTenantID, "contracts", "", testUserID, time.Now().UTC())
}

func TestProjectHandler_Create_Success(t *testing.T) {
	svc := new(MockProjectService)
	handler := NewProjectHandler(svc)
	svc.On("Create", mock.Anything, service.CreateProjectInput{
		TenantID: testTenantID,
		UserID:   testUserID,
		Name:     "contracts",
	}).Return(testProject(), nil)

	w := httptest.NewRecorder()
	handler.Create(w, jsonRequest(http.MethodPost, "/", `{"name":"contracts"}`, nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data domain.Project `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testProjectID, resp.Data.ID)
	svc.AssertExpectations(t)
}

func TestProjectHandler_Create_MissingName(t *testing.T) {
	svc := new(MockProjectService)
	handler := NewProjectHandler(svc)

	w := httptest.NewRecorder()
	handler.Create(w, jsonRequest(http.MethodPost, "/", `{}`, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProjectHandler_Create_Forbidden(t *testing.T) {
	svc := new(MockProjectService)
	handler := NewProjectHandler(svc)
	svc.On("Create", mock.Anything, mock.Anything).Return(nil, domain.ErrAccessDenied)

	w := httptest.NewRecorder()
	handler.Create(w, jsonRequest(http.MethodPost, "/", `{"name":"contracts"}`, nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProjectHandler_Create_Unauthenticated(t *testing.T) {
	handler := NewProjectHandler(new(MockProjectService))

	w := httptest.NewRecorder()
	handler.Create(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjectHandler_Get_NotFound(t *testing.T) {
	svc := new(MockProjectService)
	handler := NewProjectHandler(svc)
	svc.On("Get", mock.Anything, testTenantID, testUserID, "missing").Return(nil, domain.ErrProjectNotFound)

	w := httptest.NewRecorder()
	handler.Get(w, newRequest(http.MethodGet, "/", nil, map[string]string{"projectID": "missing"}))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectHandler_List_Empty(t *testing.T) {
	svc := new(MockProjectService)
	handler := NewProjectHandler(svc)
	svc.On("List", mock.Anything, testTenantID, testUserID).Return(nil, nil)

	w := httptest.NewRecorder()
	handler.List(w, newRequest(http.MethodGet, "/", nil, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}
