package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/register", apiHandler.RegisterHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Post("/logout", apiHandler.LogoutHandler)

			// Document routes
			r.Post("/documents", apiHandler.UploadDocumentHandler)
			r.Get("/documents", apiHandler.ListDocumentsHandler)
			r.Delete("/documents/{docID}", apiHandler.DeleteDocumentHandler)

			// Question answering
			r.Post("/ask", apiHandler.AskHandler)
			r.Get("/history", apiHandler.HistoryHandler)
			r.Get("/wordcloud", apiHandler.WordcloudHandler)

			// Model housekeeping
			r.Get("/models", apiHandler.ListModelsHandler)
			r.Post("/models/pull", apiHandler.PullModelHandler)
		})
	})

	return r
}
