package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatrelay/internal/handlers"
	"chatrelay/internal/middleware"
	"chatrelay/internal/websocket"
)

// New wires the HTTP surface. jwtAuth and chatLimiter may be nil: admin
// routes are only mounted with auth, and chat is unthrottled without a
// limiter.
func New(
	jwtAuth *middleware.JWTAuth,
	chatLimiter *middleware.RateLimiter,
	chatHandler *handlers.ChatHandler,
	adminHandler *handlers.AdminHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Chat Routes ────
		r.Group(func(r chi.Router) {
			if chatLimiter != nil {
				r.Use(chatLimiter.Middleware)
			}
			r.Post("/chat", chatHandler.Send)
		})
		r.Get("/status", chatHandler.Status)

		// ──── Admin Routes ────
		if jwtAuth != nil && adminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/reprobe", adminHandler.Reprobe)
				r.Get("/probes", adminHandler.ListProbes)
			})
		}

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
