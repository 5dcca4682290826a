package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"notra-backend/internal/handlers"
	"notra-backend/internal/middleware"
)

func New(
	chatHandler *handlers.ChatHandler,
	ui http.Handler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", chatHandler.Stream)
		r.Get("/providers", chatHandler.Providers)
	})

	// ──── Web UI ────
	if ui != nil {
		r.Handle("/*", ui)
	}

	return r
}
