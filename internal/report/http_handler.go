package report

import (
	"net/http"

	"librarian/internal/httpx"
)

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// Get handles GET /v1/patrons/{id}/report
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Generate(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONSuccess(w, r, rep, nil)
}
