package conversation

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers conversation routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/conversation", func(r chi.Router) {
		r.Post("/", h.StartConversation)
		r.Get("/{id}", h.GetConversation)
		r.Post("/{id}/message", h.PostMessage)
		r.Get("/{id}/summary", h.GetSummary)
	})
}
