package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/cloo-solutions/docpipe/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	testTenantID  = "11111111-1111-4111-8111-111111111111"
	testProjectID = "22222222-2222-4222-8222-222222222222"
	testDocID     = "33333333-3333-4333-8333-333333333333"
	testUserID    = "user-1"
)

// newRequest builds an authenticated request with chi route params set, as
// the router would.
func newRequest(method, target string, body io.Reader, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tenantID", testTenantID)
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithUserID(ctx, testUserID)
	return req.WithContext(ctx)
}

func jsonRequest(method, target, body string, params map[string]string) *http.Request {
	req := newRequest(method, target, bytes.NewBufferString(body), params)
	req.Header.Set("Content-Type", "application/json")
	return req
}
