package server

import (
	"net/http"

	"github.com/cloo-solutions/docpipe/internal/api"
	"github.com/cloo-solutions/docpipe/internal/api/handlers"
	"github.com/cloo-solutions/docpipe/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes int64 = 50 << 20

type RouterConfig struct {
	Logger          *zap.Logger
	JWTSecret       []byte
	MaxBodyBytes    int64
	ProjectHandler  *handlers.ProjectHandler
	DocumentHandler *handlers.DocumentHandler
	SearchHandler   *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret))

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Route("/projects", func(r chi.Router) {
				r.Post("/", cfg.ProjectHandler.Create)
				r.Get("/", cfg.ProjectHandler.List)
				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", cfg.ProjectHandler.Get)
					r.Post("/documents", cfg.DocumentHandler.Upload)
					r.Post("/search", cfg.SearchHandler.Search)
					r.Post("/rag", cfg.SearchHandler.Ask)
				})
			})

			r.Route("/documents", func(r chi.Router) {
				r.Get("/", cfg.DocumentHandler.List)
				r.Get("/{documentID}", cfg.DocumentHandler.Get)
				r.Delete("/{documentID}", cfg.DocumentHandler.Delete)
				r.Post("/{documentID}/retry", cfg.DocumentHandler.Retry)
			})

			r.Get("/stats", cfg.DocumentHandler.Stats)
			r.Get("/errors", cfg.DocumentHandler.Errors)
		})
	})

	return r
}
