package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the user service HTTP routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/internal/v1", func(r chi.Router) {
		r.Get("/users", handler.listUsers)
		r.Get("/users/{user_id}", handler.getUser)
	})

	return r
}
