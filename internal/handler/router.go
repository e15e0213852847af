package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/rohhhan8/major-project-4th-year/internal/i18n"
)

// RouterConfig configures the HTTP stack around the handlers.
type RouterConfig struct {
	BasePath       string
	Lang           string   // fallback language for localized messages
	AllowedOrigins []string // CORS origins; empty allows any origin
	RequestTimeout time.Duration
}

// NewRouter builds the chi router with logging, recovery, localization and
// CORS middleware.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(i18n.Middleware(cfg.Lang))

	if cfg.BasePath != "" && cfg.BasePath != "/" {
		r.Route(cfg.BasePath, h.Routes)
	} else {
		h.Routes(r)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept-Language", "Authorization"},
		MaxAge:         300,
	})
	return c.Handler(r)
}
