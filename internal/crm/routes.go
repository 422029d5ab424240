package crm

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/lead", h.HandleLead)
	r.Post("/transcript", h.HandleTranscript)
}
