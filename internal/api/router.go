package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lumen/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.PutNote)
	r.Delete("/notes/*", h.DeleteNote)
	r.Post("/rename", h.Rename)

	r.Get("/tasks", h.Tasks)
	r.Get("/tags", h.Tags)
	r.Get("/tags/tree", h.TagTree)
	r.Get("/tags/search", h.SearchTags)
	r.Get("/dates", h.Dates)
	r.Get("/templates", h.Templates)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}
