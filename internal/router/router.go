package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"lexconsul-backend/internal/handlers"
	"lexconsul-backend/internal/middleware"
	"lexconsul-backend/internal/websocket"
)

type Handlers struct {
	Device     *handlers.DeviceHandler
	Navigation *handlers.NavigationHandler
	Chat       *handlers.ChatHandler
	Settings   *handlers.SettingsHandler
	Search     *handlers.SearchHandler
	Analysis   *handlers.AnalysisHandler
}

func New(
	jwtAuth *middleware.JWTAuth,
	h Handlers,
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

	// Device registration (10 req/min per IP)
	deviceLimiter := middleware.NewRateLimiter(10, time.Minute)
	// Advisory calls (30 req/min per device)
	advisoryLimiter := middleware.NewDeviceRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Devices (public) ────
		r.With(deviceLimiter.Middleware).Post("/devices", h.Device.Register)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			// ──── Navigation ────
			r.Route("/navigation", func(r chi.Router) {
				r.Get("/", h.Navigation.Get)
				r.Put("/tab", h.Navigation.SelectTab)
				r.Post("/specialty/{specialty}", h.Navigation.OpenSpecialty)
				r.Delete("/specialty", h.Navigation.CloseSpecialty)
				r.Post("/settings", h.Navigation.OpenSettings)
				r.Delete("/settings", h.Navigation.CloseSettings)
			})
			r.Put("/connectivity", h.Navigation.SetConnectivity)

			// ──── Chats ────
			r.Route("/chats/{specialty}", func(r chi.Router) {
				r.Get("/", h.Chat.Get)
				r.With(advisoryLimiter.Middleware).Post("/messages", h.Chat.Send)
				r.Post("/save", h.Chat.Save)
				r.Delete("/", h.Chat.Reset)
			})
			r.Get("/consultations", h.Chat.Consultations)

			// ──── Alerts & Settings ────
			r.Get("/alerts", h.Settings.Alerts)
			r.Route("/settings", func(r chi.Router) {
				r.Get("/notifications", h.Settings.GetNotifications)
				r.Put("/notifications", h.Settings.ToggleNotification)
				r.Get("/theme", h.Settings.GetTheme)
				r.Put("/theme", h.Settings.SetTheme)
			})

			// ──── Search ────
			r.Route("/search", func(r chi.Router) {
				r.Post("/", h.Search.Search)
				r.Get("/history", h.Search.History)
				r.With(advisoryLimiter.Middleware).Get("/suggestions", h.Search.Suggestions)
			})

			// ──── Analysis ────
			r.Route("/analysis", func(r chi.Router) {
				r.With(advisoryLimiter.Middleware).Post("/", h.Analysis.Analyze)
				r.Get("/", h.Analysis.State)
				r.Delete("/", h.Analysis.Cancel)
				r.Post("/export", h.Analysis.Export)
			})
			r.Post("/share", h.Analysis.Share)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
