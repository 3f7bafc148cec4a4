package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/ErenYea9er69/MarketShop-sub000/internal/middleware"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware маркетплейса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Recoverer(h.logger))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/healthz", h.Health)
	if h.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	idempotent := custommiddleware.Idempotency(h.opts.Idempotency, h.opts.IdempotencyTTL, h.logger)
	redeemLimit := custommiddleware.RateLimit(h.opts.Limiter, "giftcard_redeem", h.opts.RedeemLimit, h.opts.RedeemWindow, h.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/categories", h.ListCategories)
		r.Get("/payment-methods", h.ListPaymentMethods)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/user/me", h.Me)
			r.Get("/user/balance", h.GetBalance)

			r.With(idempotent).Post("/orders", h.Checkout)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)

			r.With(idempotent).Post("/transactions/topup", h.TopUp)
			r.Get("/transactions", h.ListTransactions)

			r.With(redeemLimit, idempotent).Post("/giftcards/redeem", h.RedeemGiftCard)

			r.Route("/admin", func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(model.RoleAdmin))

				r.With(idempotent).Post("/transactions/update", h.ResolveTopUp)
				r.Get("/transactions", h.ListAllTransactions)

				r.Get("/users", h.ListUsers)
				r.Post("/users/{id}/role", h.SetUserRole)

				r.Post("/categories", h.CreateCategory)
				r.Post("/products", h.CreateProduct)
				r.Put("/products/{id}", h.UpdateProduct)

				r.Get("/products/{id}/keys", h.ListProductKeys)
				r.Post("/products/{id}/keys", h.AddProductKeys)
				r.Delete("/products/{id}/keys/{keyId}", h.DeleteProductKey)

				r.Get("/giftcards", h.ListGiftCards)
				r.Post("/giftcards", h.CreateGiftCard)

				r.Post("/payment-methods", h.CreatePaymentMethod)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
