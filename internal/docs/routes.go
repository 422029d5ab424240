package docs

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/rag/corpus", h.HandleCreateCorpus)
	r.Delete("/rag/corpus", h.HandleDeleteCorpus)
	r.Post("/rag/file", h.HandleUploadFile)
	r.Get("/rag/files", h.HandleListFiles)
	r.Delete("/rag/file", h.HandleDeleteFile)
	r.Post("/rag/query", h.HandleQuery)
	r.Get("/rag/status", h.HandleStatus)
}
