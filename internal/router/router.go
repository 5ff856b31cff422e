package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"equipment-portal/internal/config"
	"equipment-portal/internal/handler"
	"equipment-portal/internal/middleware"
)

type Handlers struct {
	Session   *handler.SessionHandler
	Dashboard *handler.DashboardHandler
	Pages     *handler.PagesHandler
}

func New(cfg *config.Config, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/", h.Pages.Landing)
	r.Get("/auth", h.Pages.Auth)
	r.Get("/login", h.Pages.Login)
	r.Get("/signup", h.Pages.Signup)
	r.Get("/admin-dashboard", h.Pages.AdminDashboard)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/session", func(s chi.Router) {
			s.Use(middleware.BrowserSession(cfg.SessionCookieSecure))
			s.Post("/login", h.Session.Login)
			s.Post("/signup", h.Session.Signup)
			s.Post("/logout", h.Session.Logout)
			s.Get("/me", h.Session.Me)
		})

		api.Get("/dashboard", h.Dashboard.Get)
	})

	return r
}
