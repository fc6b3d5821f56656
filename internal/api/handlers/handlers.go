// Package handlers exposes the tenant-scoped HTTP API. Every handler reads
// the caller from the JWT middleware and the tenant from the route; access
// control itself lives in the services.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/docpipe/internal/api"
	"github.com/cloo-solutions/docpipe/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type caller struct {
	tenantID string
	userID   string
}

// callerFrom resolves the authenticated user and route tenant. It writes the
// error response itself and reports false when either is missing.
func callerFrom(w http.ResponseWriter, r *http.Request) (caller, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return caller{}, false
	}
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		api.Error(w, http.StatusBadRequest, "tenant id is required")
		return caller{}, false
	}
	return caller{tenantID: tenantID, userID: userID}, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
