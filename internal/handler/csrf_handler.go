package handler

import (
	"net/http"

	"marketplates/internal/middleware"
	"marketplates/internal/model"
	"marketplates/internal/service"
)

type CSRFHandler struct {
	service *service.CSRFService
}

func NewCSRFHandler(service *service.CSRFService) *CSRFHandler {
	return &CSRFHandler{service: service}
}

func (h *CSRFHandler) Generate(w http.ResponseWriter, r *http.Request) {
	token, err := h.service.Issue(r.Context(), middleware.AccessToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, model.CSRFResponse{Token: token})
}
