package session

import (
	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the session API.
func Router(store *Store) chi.Router {
	r := chi.NewRouter()
	r.Post("/", CreateHandler(store))
	r.Get("/", ListHandler(store))
	r.Route("/{sessionId}", func(r chi.Router) {
		r.Get("/", GetHandler(store))
		r.Delete("/", DeleteHandler(store))
		r.Patch("/header", HeaderHandler(store))
		r.Post("/observations", ObservationHandler(store))
		r.Get("/statuses", StatusesHandler(store))
	})
	return r
}
