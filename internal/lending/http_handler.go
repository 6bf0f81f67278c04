package lending

import (
	"errors"
	"net/http"
	"strconv"

	"librarian/internal/book"
	"librarian/internal/httpx"
	"librarian/internal/patron"
)

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

type loanRequest struct {
	PatronID string `json:"patron_id" validate:"required"`
	BookID   int64  `json:"book_id" validate:"gt=0"`
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request) (loanRequest, bool) {
	var req loanRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return req, false
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", details)
		return req, false
	}
	return req, true
}

// Borrow handles POST /v1/loans
func (h *HTTPHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Borrow(r.Context(), req.PatronID, req.BookID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, res)
}

// Return handles POST /v1/returns
func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Return(r.Context(), req.PatronID, req.BookID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

// Fee handles GET /v1/patrons/{id}/fees/{book_id}
func (h *HTTPHandler) Fee(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(r.PathValue("book_id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid book ID", nil)
		return
	}
	res, err := h.svc.AssessFee(r.Context(), r.PathValue("id"), bookID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

// writeError maps lending failures to an error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, patron.ErrInvalidID):
		status, code = http.StatusBadRequest, "INVALID_PATRON"
	case errors.Is(err, book.ErrNotFound):
		status, code = http.StatusNotFound, "BOOK_NOT_FOUND"
	case errors.Is(err, ErrBookUnavailable):
		status, code = http.StatusConflict, "BOOK_UNAVAILABLE"
	case errors.Is(err, ErrBorrowLimitExceeded):
		status, code = http.StatusConflict, "BORROW_LIMIT_EXCEEDED"
	case errors.Is(err, ErrAlreadyBorrowed):
		status, code = http.StatusConflict, "ALREADY_BORROWED"
	case errors.Is(err, ErrNotBorrowed):
		status, code = http.StatusNotFound, "NOT_BORROWED"
	}
	httpx.JSONError(w, r, status, code, Message(err), nil)
}
