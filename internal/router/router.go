package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"elasticlm-backend/internal/handlers"
	"elasticlm-backend/internal/middleware"
	"elasticlm-backend/internal/websocket"
	"elasticlm-backend/internal/worker"
)

type Handlers struct {
	Upload *handlers.UploadHandler
	Chat   *handlers.ChatHandler
	Admin  *handlers.AdminHandler
	Search *handlers.SearchHandler
	Books  *handlers.BooksHandler

	RegulationsChat http.HandlerFunc
}

func New(
	h Handlers,
	adminAuth *middleware.AdminAuth,
	limiter *middleware.RateLimiter,
	wsHub *websocket.Hub,
	corsOrigins []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(corsOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── Document chat ────
	r.Route("/upload", func(r chi.Router) {
		r.Post("/", h.Upload.Upload)
		r.Post("/youtube", h.Upload.UploadYouTube)
		r.Get("/status", h.Upload.Status)
	})

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Post("/chat", h.Chat.Chat)
		r.Post("/chat/", h.Chat.Chat)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminAuth.Middleware)
		r.Get("/documents", h.Admin.ListDocuments)
		r.Delete("/documents", h.Admin.DeleteDocument)
	})

	// ──── Wiki search proxy and book chat ────
	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Post("/search", h.Search.Search)
		r.Post("/geo-search", h.Search.GeoSearch)
		r.Post("/validate-elasticsearch", h.Search.Validate)
		r.Post("/books-chat", h.Books.Chat)
	})

	// ──── WebSocket ────
	r.Get("/ws/uploads", wsHub.Handler(worker.UpdatesChannel))
	if h.RegulationsChat != nil {
		r.Get("/ws/chat", h.RegulationsChat)
	}

	return r
}

// NewRateLimiter is the limiter shared by the chat, search and book routes.
func NewRateLimiter() *middleware.RateLimiter {
	return middleware.NewRateLimiter(60, time.Minute)
}
