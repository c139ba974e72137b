package browse

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"bookfinder/internal/book"
	"bookfinder/internal/discovery"
	"bookfinder/internal/httpx"
	"bookfinder/internal/reader"
)

// Resolver turns a displayed record into a reading outcome.
type Resolver interface {
	Resolve(ctx context.Context, r book.Record) reader.Outcome
}

type HTTPHandler struct {
	registry *Registry
	searcher Searcher
	rewriter *discovery.Rewriter
	resolver Resolver
}

func NewHTTPHandler(registry *Registry, searcher Searcher, rewriter *discovery.Rewriter, resolver Resolver) *HTTPHandler {
	if rewriter == nil {
		rewriter = discovery.NewRewriter(nil)
	}
	return &HTTPHandler{registry: registry, searcher: searcher, rewriter: rewriter, resolver: resolver}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/search", h.Search)
	mux.HandleFunc("POST /v1/sessions", h.CreateSession)
	mux.HandleFunc("GET /v1/sessions/{id}", h.GetSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.DeleteSession)
	mux.HandleFunc("PUT /v1/sessions/{id}/query", h.SetQuery)
	mux.HandleFunc("PUT /v1/sessions/{id}/filter", h.SetFilter)
	mux.HandleFunc("PUT /v1/sessions/{id}/theme", h.SetTheme)
	mux.HandleFunc("POST /v1/sessions/{id}/more", h.LoadMore)
	mux.HandleFunc("POST /v1/sessions/{id}/books/{bookID}/open", h.OpenBook)
}

type createSessionRequest struct {
	Query  string `json:"query" validate:"max=200"`
	Filter string `json:"filter" validate:"omitempty,oneof=all free premium"`
	Theme  string `json:"theme" validate:"omitempty,oneof=light dark reading"`
}

type queryRequest struct {
	Query string `json:"query" validate:"max=200"`
}

type filterRequest struct {
	Filter string `json:"filter" validate:"required,oneof=all free premium"`
}

type themeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark reading"`
}

type sessionResponse struct {
	ID string `json:"id"`
	Snapshot
}

// Search handles GET /v1/search
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := FetchLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > FetchLimit {
			httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "limit must be between 1 and 40", nil)
			return
		}
		limit = n
	}

	effective := h.rewriter.Rewrite(q)
	res := h.searcher.Aggregate(r.Context(), effective, limit)
	meta := httpx.Meta{
		"query":           q,
		"effective_query": effective,
		"count":           len(res.Records),
		"failures":        res.Failures,
	}
	if res.TotalFailure() {
		httpx.JSONErrorWithMeta(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", MsgFetchFailed, nil, meta)
		return
	}
	httpx.JSONSuccess(w, r, res.Records, meta)
}

// CreateSession handles POST /v1/sessions
func (h *HTTPHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	filter, err := book.ParseFilter(req.Filter)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	theme, err := ParseTheme(req.Theme)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	id, c := h.registry.Create(theme)
	snap, err := c.Search(r.Context(), req.Query, filter)
	if err != nil {
		h.writeControllerError(w, r, id, snap, err)
		return
	}
	httpx.JSONCreated(w, r, sessionResponse{ID: id, Snapshot: snap}, nil)
}

// GetSession handles GET /v1/sessions/{id}
func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.session(w, r)
	if !ok {
		return
	}
	httpx.JSONSuccess(w, r, sessionResponse{ID: id, Snapshot: c.Snapshot()}, nil)
}

// DeleteSession handles DELETE /v1/sessions/{id}
func (h *HTTPHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.PathValue("id")); err != nil {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Session not found", nil)
		return
	}
	httpx.JSONNoContent(w)
}

// SetQuery handles PUT /v1/sessions/{id}/query
func (h *HTTPHandler) SetQuery(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.session(w, r)
	if !ok {
		return
	}
	var req queryRequest
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	snap, err := c.SetQuery(r.Context(), req.Query)
	if err != nil {
		h.writeControllerError(w, r, id, snap, err)
		return
	}
	httpx.JSONSuccess(w, r, sessionResponse{ID: id, Snapshot: snap}, nil)
}

// SetFilter handles PUT /v1/sessions/{id}/filter
func (h *HTTPHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.session(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	filter, err := book.ParseFilter(req.Filter)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	snap, err := c.SetFilter(r.Context(), filter)
	if err != nil {
		h.writeControllerError(w, r, id, snap, err)
		return
	}
	httpx.JSONSuccess(w, r, sessionResponse{ID: id, Snapshot: snap}, nil)
}

// SetTheme handles PUT /v1/sessions/{id}/theme
func (h *HTTPHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.session(w, r)
	if !ok {
		return
	}
	var req themeRequest
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}
	theme, err := ParseTheme(req.Theme)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	httpx.JSONSuccess(w, r, sessionResponse{ID: id, Snapshot: c.SetTheme(theme)}, nil)
}

// LoadMore handles POST /v1/sessions/{id}/more
func (h *HTTPHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := c.LoadMore(r.Context())
	if err != nil {
		h.writeControllerError(w, r, id, snap, err)
		return
	}
	httpx.JSONSuccess(w, r, sessionResponse{ID: id, Snapshot: snap}, nil)
}

// OpenBook handles POST /v1/sessions/{id}/books/{bookID}/open
func (h *HTTPHandler) OpenBook(w http.ResponseWriter, r *http.Request) {
	_, c, ok := h.session(w, r)
	if !ok {
		return
	}
	rec, found := c.Find(r.PathValue("bookID"))
	if !found {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found in session", nil)
		return
	}
	httpx.JSONSuccess(w, r, h.resolver.Resolve(r.Context(), rec), nil)
}

func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request) (string, *Controller, bool) {
	id := r.PathValue("id")
	c, err := h.registry.Get(id)
	if err != nil {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Session not found", nil)
		return "", nil, false
	}
	return id, c, true
}

func (h *HTTPHandler) writeControllerError(w http.ResponseWriter, r *http.Request, id string, snap Snapshot, err error) {
	meta := httpx.Meta{"session": sessionResponse{ID: id, Snapshot: snap}}
	switch {
	case errors.Is(err, ErrTotalFetchFailure):
		httpx.JSONErrorWithMeta(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", MsgFetchFailed, nil, meta)
	case errors.Is(err, ErrLoadMoreFailed):
		httpx.JSONErrorWithMeta(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", MsgLoadMoreFailed, nil, meta)
	case errors.Is(err, ErrLoadInProgress):
		httpx.JSONErrorWithMeta(w, r, http.StatusConflict, "CONFLICT", "Already loading more books", nil, meta)
	case errors.Is(err, ErrLoadMoreUnavailable):
		httpx.JSONErrorWithMeta(w, r, http.StatusConflict, "CONFLICT", "Nothing more to load", nil, meta)
	case errors.Is(err, ErrSuperseded):
		httpx.JSONErrorWithMeta(w, r, http.StatusConflict, "CONFLICT", "Superseded by a newer request", nil, meta)
	default:
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
