package assessment

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/saulo-duarte/chronos-prep/internal/auth"
)

func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(auth.AuthMiddleware)

	r.Get("/", h.ListSets)
	r.Post("/interviews", h.CreateInterview)
	r.Post("/practice", h.CreatePractice)
	r.Get("/{id}", h.GetSet)
	r.Post("/{id}/generate", h.Regenerate)
	r.Patch("/{id}/progress", h.SaveProgress)
	r.Post("/{id}/progress", h.SaveProgress)
	r.Post("/{id}/submit", h.Submit)
	r.Post("/{id}/retake", h.Retake)
	r.Get("/{id}/results/latest", h.LatestResult)
	return r
}
