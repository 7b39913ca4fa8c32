package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/tavola-miniapp/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware локального API.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(h.identity.Middleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/menu", h.GetMenu)
		r.Get("/promotions", h.GetPromotions)

		r.Get("/cart", h.GetCart)
		r.Delete("/cart", h.ClearCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Delete("/cart/items/{index}", h.RemoveCartItem)
		r.Post("/cart/promo", h.ApplyPromo)

		r.Post("/checkout", h.Checkout)

		r.Get("/delivery", h.GetDelivery)
		r.Put("/delivery", h.SaveDelivery)

		r.Get("/profile", h.GetProfile)
		r.Post("/orders/{id}/status", h.UpdateOrderStatus)

		r.Route("/admin", func(r chi.Router) {
			r.Use(custommiddleware.RequireAdmin(h.service.IsAdmin))

			r.Post("/dishes", h.AddDish)
			r.Delete("/dishes/{id}", h.DeleteDish)

			r.Get("/promocodes", h.GetPromoCodes)
			r.Post("/promocodes", h.CreatePromoCode)
			r.Delete("/promocodes", h.DeletePromoCode)

			r.Post("/admins", h.AddAdmin)
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
