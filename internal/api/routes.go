package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter creates and configures the Chi router
func NewRouter(h *Handler, jwtSecret string, logger logrus.FieldLogger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(Recoverer(logger))
	r.Use(Logger(logger))
	r.Use(CORS)
	r.Use(JSONContentType)

	r.Get("/", h.Root)
	r.Get("/health", h.HealthCheck)

	r.Route("/entries", func(r chi.Router) {
		r.Get("/en", h.ListWords)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser(jwtSecret))

			r.Get("/history", h.History)
			r.Get("/favorites", h.Favorites)

			r.Route("/en/{word}", func(r chi.Router) {
				r.Get("/", h.GetWord)
				r.Post("/favorite", h.AddFavorite)
				r.Delete("/favorite", h.RemoveFavorite)
			})
		})
	})

	return r
}
