package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"go-shop-api/internal/handler"
	"go-shop-api/internal/middleware"
)

// Options carries the middleware settings the router needs from config.
type Options struct {
	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
	RequestTimeout   time.Duration
}

type Handlers struct {
	Auth    *handler.AuthHandler
	Product *handler.ProductHandler
	Order   *handler.OrderHandler
	User    *handler.UserHandler
	Audit   *handler.AuditHandler
	Health  *handler.HealthHandler
	Docs    *handler.DocsHandler
}

func New(opts Options, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(opts.RateLimitRPM, opts.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Check)
	r.Get("/openapi.yaml", h.Docs.OpenAPI)

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(opts.RequestTimeout))

		api.Post("/signup", h.Auth.Signup)
		api.Post("/login", h.Auth.Login)
		api.With(authMiddleware.RequireAuth).Post("/logout", h.Auth.Logout)

		api.Route("/products", func(products chi.Router) {
			products.Get("/", h.Product.List)
			products.Get("/{id}", h.Product.Get)

			products.Group(func(orders chi.Router) {
				orders.Use(authMiddleware.RequireAuth)
				orders.Post("/order", h.Order.Place)
				orders.Get("/orders/my", h.Order.ListMine)
				orders.Get("/orders/{id}", h.Order.Get)
			})
		})

		api.Route("/user", func(user chi.Router) {
			user.Use(authMiddleware.RequireAuth)
			user.Get("/profile", h.User.GetProfile)
			user.Put("/profile", h.User.UpdateProfile)
			user.Get("/dashboard", h.User.Dashboard)
			user.Put("/password", h.Auth.ChangePassword)
			user.Get("/activity", h.Audit.Activity)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"code":"NOT_FOUND","message":"route not found"}`))
	})

	return r
}
