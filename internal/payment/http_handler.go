package payment

import (
	"errors"
	"net/http"

	"librarian/internal/book"
	"librarian/internal/httpx"
	"librarian/internal/patron"
)

type HTTPHandler struct {
	svc *Service
	gw  Gateway
}

func NewHTTPHandler(svc *Service, gw Gateway) *HTTPHandler {
	return &HTTPHandler{svc: svc, gw: gw}
}

type payRequest struct {
	PatronID string `json:"patron_id" validate:"required"`
	BookID   int64  `json:"book_id" validate:"gt=0"`
}

type refundRequest struct {
	TransactionID string  `json:"transaction_id" validate:"required"`
	Amount        float64 `json:"amount"`
}

// Pay handles POST /v1/payments
func (h *HTTPHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", details)
		return
	}

	res, err := h.svc.PayLateFee(r.Context(), h.gw, req.PatronID, req.BookID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, res)
}

// Refund handles POST /v1/refunds
func (h *HTTPHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.RefundLateFee(r.Context(), h.gw, req.TransactionID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, patron.ErrInvalidID):
		status, code = http.StatusBadRequest, "INVALID_PATRON"
	case errors.Is(err, book.ErrNotFound):
		status, code = http.StatusNotFound, "BOOK_NOT_FOUND"
	case errors.Is(err, ErrNoFeeDue):
		status, code = http.StatusConflict, "NO_FEE_DUE"
	case errors.Is(err, ErrPaymentFailed):
		status, code = http.StatusPaymentRequired, "PAYMENT_FAILED"
	case errors.Is(err, ErrRefundFailed):
		status, code = http.StatusPaymentRequired, "REFUND_FAILED"
	case errors.Is(err, ErrPaymentProcessing), errors.Is(err, ErrRefundProcessing):
		status, code = http.StatusBadGateway, "GATEWAY_ERROR"
	case errors.Is(err, ErrInvalidTransaction):
		status, code = http.StatusBadRequest, "INVALID_TRANSACTION"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrAmountExceedsMax), errors.Is(err, ErrAmountExceedsPaid):
		status, code = http.StatusBadRequest, "INVALID_AMOUNT"
	}
	httpx.JSONError(w, r, status, code, Message(err), nil)
}
