package journal

import (
	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the journal API.
func Router(store *Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/observations", ListObservationsHandler(store))
	r.Get("/observations/{eventId}", GetObservationHandler(store))
	r.Get("/requests", ListRequestsHandler(store))
	return r
}
