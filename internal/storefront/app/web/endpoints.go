package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storefront_api/internal/auth"
	"storefront_api/internal/storefront/app/web/handlers"
	"storefront_api/metrics"
	"storefront_api/pkg/logger"
	"storefront_api/pkg/middleware"
)

type Handlers struct {
	Checkout *handlers.CheckoutHandler
	Webhook  *handlers.WebhookHandler
	Product  *handlers.ProductHandler
	Admin    *handlers.AdminHandler
	Health   *handlers.HealthHandler
}

// NewRouter wires every storefront route. Admin routes are only mounted
// when a JWT secret is configured.
func NewRouter(h Handlers, jwtSecret string, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.PrometheusMiddleware)

	r.Get("/healthz", h.Health.Healthz)
	r.Handle("/metrics", metrics.MetricsHandler())

	r.Post("/webhooks/stripe", h.Webhook.HandleStripe)

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout", h.Checkout.CreateCheckout)

		r.Get("/products", h.Product.ListProducts)
		r.Get("/products/{id}", h.Product.GetProduct)

		if jwtSecret == "" {
			log.Warn("auth.jwt_secret is empty, admin routes are disabled")
			return
		}
		r.Route("/admin/products", func(r chi.Router) {
			r.Use(auth.AuthMiddleware(jwtSecret))
			r.Use(auth.RoleMiddleware(auth.RoleAdmin))

			r.Get("/", h.Admin.ListProducts)
			r.Post("/", h.Admin.CreateProduct)
			r.Get("/{id}", h.Admin.GetProduct)
			r.Put("/{id}", h.Admin.UpdateProduct)
			r.Put("/{id}/stock", h.Admin.SetStock)
			r.Delete("/{id}", h.Admin.DeleteProduct)
		})
	})

	return r
}
