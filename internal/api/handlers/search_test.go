package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) Search(ctx context.Context, input service.SearchInput) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

func (m *MockRetrievalService) Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AskOutput), args.Error(1)
}

var projectParams = map[string]string{"projectID": testProjectID}

func TestSearchHandler_Search_DefaultLimit(t *testing.T) {
	svc := new(MockRetrievalService)
	handler := NewSearchHandler(svc)
	svc.On("Search", mock.Anything, service.SearchInput{
		TenantID:  testTenantID,
		ProjectID: testProjectID,
		UserID:    testUserID,
		Query:     "refund policy",
		Limit:     domain.DefaultSearchLimit,
	}).Return([]*domain.SearchResult{{ID: "c1", Chunk: "Refunds within 30 days."}}, nil)

	w := httptest.NewRecorder()
	handler.Search(w, jsonRequest(http.MethodPost, "/", `{"query":"refund policy"}`, projectParams))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Refunds within 30 days.")
	svc.AssertExpectations(t)
}

func TestSearchHandler_Search_ZeroLimitReachesService(t *testing.T) {
	svc := new(MockRetrievalService)
	handler := NewSearchHandler(svc)
	svc.On("Search", mock.Anything, mock.MatchedBy(func(in service.SearchInput) bool {
		return in.Limit == 0
	})).Return(nil, domain.ErrInvalidLimit)

	w := httptest.NewRecorder()
	handler.Search(w, jsonRequest(http.MethodPost, "/", `{"query":"q","limit":0}`, projectParams))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_Search_EmptyQuery(t *testing.T) {
	svc := new(MockRetrievalService)
	handler := NewSearchHandler(svc)

	w := httptest.NewRecorder()
	handler.Search(w, jsonRequest(http.MethodPost, "/", `{"query":"   "}`, projectParams))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSearchHandler_Search_GatewayDown(t *testing.T) {
	svc := new(MockRetrievalService)
	handler := NewSearchHandler(svc)
	svc.On("Search", mock.Anything, mock.Anything).Return(nil, domain.ErrGatewayUnavailable)

	w := httptest.NewRecorder()
	handler.Search(w, jsonRequest(http.MethodPost, "/", `{"query":"q"}`, projectParams))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSearchHandler_Ask(t *testing.T) {
	svc := new(MockRetrievalService)
	handler := NewSearchHandler(svc)
	svc.On("Ask", mock.Anything, mock.MatchedBy(func(in service.AskInput) bool {
		return in.Query == "what is covered?" && in.SystemPrompt == "Be brief." && in.Limit == 5
	})).Return(&service.AskOutput{Answer: "Everything."}, nil)

	w := httptest.NewRecorder()
	handler.Ask(w, jsonRequest(http.MethodPost, "/",
		`{"query":"what is covered?","limit":5,"system_prompt":"Be brief."}`, projectParams))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Everything.")
}
