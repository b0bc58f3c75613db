package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the auth service HTTP routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/refresh", handler.refresh)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/logout", handler.logout)
			r.Get("/profile", handler.getProfile)
			r.Put("/profile", handler.updateProfile)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", handler.listUsers)
				r.Post("/", handler.adminCreateUser)
				r.Delete("/", handler.bulkDeleteUsers)
				r.Get("/{user_id}", handler.getUser)
				r.Put("/{user_id}", handler.adminUpdateUser)
				r.Delete("/{user_id}", handler.adminDeleteUser)
			})
		})
	})

	return r
}
