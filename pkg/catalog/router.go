package catalog

import (
	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the catalog API.
func Router(h *Holder) chi.Router {
	r := chi.NewRouter()
	r.Get("/lines", ListLinesHandler(h))
	r.Get("/stages", ListStagesHandler(h))
	r.Get("/stages/{stageId}", GetStageHandler(h))
	r.Get("/bindings", ListBindingsHandler(h))
	r.Post("/classify", ClassifyHandler(h))
	r.Get("/version", VersionHandler(h))
	return r
}
