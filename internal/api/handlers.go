package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lumen/internal/noteservice"
)

// maxBody caps request bodies at 10 MiB.
const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// noteID extracts the note id from the URL (everything after /notes/).
// Encoded slashes (projects%2Fplan) are decoded.
func noteID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

// decode reads a JSON body into v and runs its ozzo validation.
func decode(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// ListNotes handles GET /notes. With q it runs the query language; without
// it lists notes in display order.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes := h.svc.Search(r.Context(), r.URL.Query().Get("q"), limitParam(r))
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /notes/*.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, "get note", id, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(note.Checksum))
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.ID, req.Content)
	if err != nil {
		writeError(w, "create note", req.ID, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(note.Checksum))
	writeJSON(w, http.StatusCreated, note)
}

// PutNote handles PUT /notes/*. A quoted or bare If-Match checksum enables
// optimistic concurrency; a missing note is created.
func (h *Handler) PutNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	var req UpdateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, created, err := h.svc.UpsertNote(r.Context(), id, *req.Content, ifMatch)
	if err != nil {
		writeError(w, "put note", id, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("ETag", strconv.Quote(note.Checksum))
	writeJSON(w, status, note)
}

// DeleteNote handles DELETE /notes/*.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeError(w, "delete note", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rename handles POST /rename.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.RenameNote(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, "rename note", req.From, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Tasks handles GET /tasks.
func (h *Handler) Tasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.svc.SearchTasks(r.Context(), r.URL.Query().Get("q"), limitParam(r))
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// Tags handles GET /tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.svc.Tags(r.Context())})
}

// TagTree handles GET /tags/tree.
func (h *Handler) TagTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tree": h.svc.TagTree(r.Context())})
}

// SearchTags handles GET /tags/search.
func (h *Handler) SearchTags(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.svc.SearchTags(r.Context(), q)})
}

// Dates handles GET /dates.
func (h *Handler) Dates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"dates": h.svc.Dates(r.Context())})
}

// Templates handles GET /templates.
func (h *Handler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": h.svc.Templates(r.Context())})
}
