package shelf

import (
	"context"
	"errors"
	"net/http"

	"bookfinder/internal/book"
	"bookfinder/internal/httpx"
	"bookfinder/internal/reader"
)

// Resolver turns a shelved record into a reading outcome.
type Resolver interface {
	Resolve(ctx context.Context, r book.Record) reader.Outcome
}

type HTTPHandler struct {
	service  *Service
	resolver Resolver
}

func NewHTTPHandler(service *Service, resolver Resolver) *HTTPHandler {
	return &HTTPHandler{service: service, resolver: resolver}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/shelves/{owner}", h.List)
	mux.HandleFunc("POST /v1/shelves/{owner}", h.Add)
	mux.HandleFunc("DELETE /v1/shelves/{owner}/books/{bookID}", h.Remove)
	mux.HandleFunc("POST /v1/shelves/{owner}/books/{bookID}/open", h.Open)
}

type addCheck struct {
	ID     string  `json:"id" validate:"required,max=512"`
	Source string  `json:"source" validate:"required,oneof=library commercial"`
	Rating float64 `json:"rating" validate:"gte=1,lte=5"`
}

// List handles GET /v1/shelves/{owner}
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context(), r.PathValue("owner"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, records, httpx.Meta{"count": len(records)})
}

// Add handles POST /v1/shelves/{owner}
func (h *HTTPHandler) Add(w http.ResponseWriter, r *http.Request) {
	var rec book.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}
	if details := httpx.ValidateStruct(addCheck{ID: rec.ID, Source: string(rec.Source), Rating: rec.Rating}); details != nil {
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", details)
		return
	}
	rec = rec.WithLists()

	added, err := h.service.Add(r.Context(), r.PathValue("owner"), rec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !added {
		httpx.JSONSuccess(w, r, rec, httpx.Meta{"added": false})
		return
	}
	httpx.JSONCreated(w, r, rec, httpx.Meta{"added": true})
}

// Remove handles DELETE /v1/shelves/{owner}/books/{bookID}
func (h *HTTPHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), r.PathValue("owner"), r.PathValue("bookID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}

// Open handles POST /v1/shelves/{owner}/books/{bookID}/open
func (h *HTTPHandler) Open(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), r.PathValue("owner"), r.PathValue("bookID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, h.resolver.Resolve(r.Context(), rec), nil)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidOwner):
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid shelf owner", nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not on shelf", nil)
	default:
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
