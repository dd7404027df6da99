package httpapi

import (
	"net/http"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	Verifier *auth.TokenVerifier
	Limiter  *rate.Limiter
	Observer RequestObserver
}

func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger.Named("http"), cfg.Observer))

	r.Get("/healthz", h.Healthz)

	r.Route("/api/discovery", func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(RateLimit(cfg.Limiter))
		}
		r.Use(OptionalAuth(cfg.Verifier, logger))

		r.Get("/listings", h.SearchListings)
		r.Get("/listings/{id}/preview", h.GetPreview)
		r.Get("/facets/{category}", h.GetFacetSchema)
		r.Get("/map", h.MapListings)
	})
	return r
}
