// Package handler содержит HTTP-обработчики API сервиса gophershop.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/gophershop/internal/middleware"
	"github.com/mmeshcher/gophershop/internal/model"
	"github.com/mmeshcher/gophershop/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	RegisterUser(ctx context.Context, email, password string) (*model.User, error)
	RegisterAdmin(ctx context.Context, email, password, displayName, adminCode string) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, uid string) (*model.User, error)
	Reauthenticate(ctx context.Context, uid, email, password string) error
	ChangePassword(ctx context.Context, uid, newPassword string) error
	DeleteAccount(ctx context.Context, uid string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error

	IsAdmin(ctx context.Context, requester, uid string) (bool, error)
	GetUserData(ctx context.Context, requester, uid string) (model.Record, error)
	PutUserData(ctx context.Context, requester, uid string, data model.Record) error
	PlaceOrder(ctx context.Context, requester, uid string, items []model.Record) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, requester, uid string) ([]model.Order, error)
}

// Handler реализует HTTP-обработчики API сервиса gophershop.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

// writeServiceError переводит ошибку сервиса в HTTP-статус и код ошибки провайдера.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrInvalidActionCode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidAdminCode),
		errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmailInUse):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op+" error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

func decodeJSON(r *http.Request, v any) bool {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v) == nil
}

// Health сообщает о доступности сервиса и его хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	AdminCode   string `json:"adminCode"`
}

// Register обрабатывает регистрацию нового пользователя и выполняет вход.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid-argument")
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, "register user", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, u.ID)
	writeJSON(w, http.StatusOK, u.Identity())
}

// RegisterAdmin обрабатывает регистрацию администратора по коду.
func (h *Handler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid-argument")
		return
	}

	u, err := h.service.RegisterAdmin(r.Context(), req.Email, req.Password, req.DisplayName, req.AdminCode)
	if err != nil {
		h.writeServiceError(w, "register admin", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, u.ID)
	writeJSON(w, http.StatusOK, u.Identity())
}

// Login выполняет аутентификацию пользователя и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid-argument")
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, "login user", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, u.ID)
	writeJSON(w, http.StatusOK, u.Identity())
}

// Logout удаляет cookie авторизации.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// RequestPasswordReset выпускает токен сброса пароля.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid-argument")
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, "password reset", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ConfirmPasswordReset устанавливает новый пароль по токену.
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !decodeJSON(r, &req) || req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid-argument")
		return
	}

	if err := h.service.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		h.writeServiceError(w, "confirm password reset", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Me возвращает текущего пользователя по cookie.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())

	u, err := h.service.GetUser(r.Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			h.authMiddleware.ClearAuthCookie(w)
		}
		h.writeServiceError(w, "get user", err)
		return
	}

	writeJSON(w, http.StatusOK, u.Identity())
}

// UpdatePassword меняет пароль текущего пользователя.
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())

	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid-argument")
		return
	}

	if err := h.service.ChangePassword(r.Context(), uid, req.Password); err != nil {
		h.writeServiceError(w, "update password", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Reauthenticate повторно проверяет учётные данные текущего пользователя.
func (h *Handler) Reauthenticate(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())

	var req credentialsRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid-argument")
		return
	}

	if err := h.service.Reauthenticate(r.Context(), uid, req.Email, req.Password); err != nil {
		h.writeServiceError(w, "reauthenticate", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteAccount удаляет учётную запись текущего пользователя.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())

	if err := h.service.DeleteAccount(r.Context(), uid); err != nil {
		h.writeServiceError(w, "delete account", err)
		return
	}

	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type orderResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Status    string         `json:"status"`
	Items     []model.Record `json:"items"`
	CreatedAt string         `json:"createdAt"`
	Total     float64        `json:"total"`
	Savings   float64        `json:"savings"`
	ItemCount int            `json:"itemCount"`
}

func newOrderResponse(o model.Order) orderResponse {
	rec := o.ToRecord()
	return orderResponse{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Status:    string(rec.Status),
		Items:     rec.Items,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339Nano),
		Total:     o.Total(),
		Savings:   o.Savings(),
		ItemCount: o.ItemCount(),
	}
}
