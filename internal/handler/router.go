package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/gophershop/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса gophershop.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/api/health", h.Health)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/register/admin", h.RegisterAdmin)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/password/reset", h.RequestPasswordReset)
		r.Post("/password/confirm", h.ConfirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/me", h.Me)
			r.Put("/password", h.UpdatePassword)
			r.Post("/reauthenticate", h.Reauthenticate)
			r.Delete("/", h.DeleteAccount)
		})
	})

	r.Route("/api/users/{uid}", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/admin", h.GetAdminStatus)

		r.Get("/data", h.GetUserData)
		r.Put("/data", h.PutUserData)

		r.Get("/orders", h.GetOrders)
		r.Post("/orders", h.PlaceOrder)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not-found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed")
	})

	return r
}
