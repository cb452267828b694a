package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/gophershop/internal/middleware"
	"github.com/mmeshcher/gophershop/internal/model"
)

// GetAdminStatus возвращает признак администратора для документа пользователя.
func (h *Handler) GetAdminStatus(w http.ResponseWriter, r *http.Request) {
	requester, _ := middleware.GetUserIDFromContext(r.Context())

	isAdmin, err := h.service.IsAdmin(r.Context(), requester, chi.URLParam(r, "uid"))
	if err != nil {
		h.writeServiceError(w, "get admin status", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"isAdmin": isAdmin})
}

// GetUserData возвращает документ пользователя.
func (h *Handler) GetUserData(w http.ResponseWriter, r *http.Request) {
	requester, _ := middleware.GetUserIDFromContext(r.Context())

	data, err := h.service.GetUserData(r.Context(), requester, chi.URLParam(r, "uid"))
	if err != nil {
		h.writeServiceError(w, "get user data", err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

// PutUserData заменяет документ пользователя.
func (h *Handler) PutUserData(w http.ResponseWriter, r *http.Request) {
	requester, _ := middleware.GetUserIDFromContext(r.Context())

	var data model.Record
	if !decodeJSON(r, &data) || data == nil {
		writeError(w, http.StatusBadRequest, "invalid-argument")
		return
	}

	if err := h.service.PutUserData(r.Context(), requester, chi.URLParam(r, "uid"), data); err != nil {
		h.writeServiceError(w, "put user data", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PlaceOrder оформляет заказ из переданных позиций.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	requester, _ := middleware.GetUserIDFromContext(r.Context())

	var req struct {
		Items []model.Record `json:"items"`
	}
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid-argument")
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), requester, chi.URLParam(r, "uid"), req.Items)
	if err != nil {
		h.writeServiceError(w, "place order", err)
		return
	}

	writeJSON(w, http.StatusCreated, newOrderResponse(*order))
}

// GetOrders возвращает историю заказов пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	requester, _ := middleware.GetUserIDFromContext(r.Context())

	orders, err := h.service.GetOrdersByUser(r.Context(), requester, chi.URLParam(r, "uid"))
	if err != nil {
		h.writeServiceError(w, "get orders", err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}
