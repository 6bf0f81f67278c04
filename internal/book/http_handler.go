package book

import (
	"errors"
	"net/http"
	"strconv"

	"librarian/internal/httpx"
)

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// List handles GET /v1/books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.List(r.Context())
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONSuccess(w, r, books, httpx.Meta{"total": len(books)})
}

// Get handles GET /v1/books/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid book ID", nil)
		return
	}

	b, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Search handles GET /v1/books/search?q=&type=
// type defaults to title.
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	field := query.Get("type")
	if field == "" {
		field = string(SearchByTitle)
	}

	books, err := h.svc.Search(r.Context(), query.Get("q"), field)
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONSuccess(w, r, books, httpx.Meta{"total": len(books)})
}

// Create handles POST /v1/books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req NewBook
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.AddBook(r.Context(), req)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", verr.Message, []httpx.ErrorDetail{
				{Field: verr.Field, Message: verr.Message},
			})
		case errors.Is(err, ErrAlreadyExists):
			httpx.JSONError(w, r, http.StatusConflict, "ALREADY_EXISTS", "A book with this ISBN already exists.", nil)
		default:
			httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Database error occurred while adding the book.", nil)
		}
		return
	}
	httpx.JSONCreated(w, r, res)
}
