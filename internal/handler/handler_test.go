package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/gophershop/internal/middleware"
	"github.com/mmeshcher/gophershop/internal/model"
	"github.com/mmeshcher/gophershop/internal/service"
)

type stubService struct {
	user    *model.User
	userErr error

	opErr error

	isAdmin bool
	data    model.Record

	order    *model.Order
	orders   []model.Order
	gotItems []model.Record

	requester string
	pingErr   error
}

func (s *stubService) Ping(ctx context.Context) error {
	return s.pingErr
}

func (s *stubService) RegisterUser(ctx context.Context, email, password string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) RegisterAdmin(ctx context.Context, email, password, displayName, adminCode string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) GetUser(ctx context.Context, uid string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) Reauthenticate(ctx context.Context, uid, email, password string) error {
	return s.opErr
}

func (s *stubService) ChangePassword(ctx context.Context, uid, newPassword string) error {
	return s.opErr
}

func (s *stubService) DeleteAccount(ctx context.Context, uid string) error {
	return s.opErr
}

func (s *stubService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.opErr
}

func (s *stubService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return s.opErr
}

func (s *stubService) IsAdmin(ctx context.Context, requester, uid string) (bool, error) {
	s.requester = requester
	if requester != uid {
		return false, service.ErrPermissionDenied
	}
	return s.isAdmin, s.opErr
}

func (s *stubService) GetUserData(ctx context.Context, requester, uid string) (model.Record, error) {
	return s.data, s.opErr
}

func (s *stubService) PutUserData(ctx context.Context, requester, uid string, data model.Record) error {
	s.data = data
	return s.opErr
}

func (s *stubService) PlaceOrder(ctx context.Context, requester, uid string, items []model.Record) (*model.Order, error) {
	s.gotItems = items
	return s.order, s.opErr
}

func (s *stubService) GetOrdersByUser(ctx context.Context, requester, uid string) ([]model.Order, error) {
	return s.orders, s.opErr
}

const testUID = "3f1c0a52-6f1e-4a53-9c6d-1f0c2b7f9e11"

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	return NewHandler(svc, logger, middleware.NewAuthMiddleware("test-secret"))
}

func authCookie(t *testing.T, h *Handler, uid string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, uid)
	return rec.Result().Cookies()[0]
}

func do(t *testing.T, h *Handler, method, path string, body any, cookie *http.Cookie) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec.Result()
}

func errorCode(t *testing.T, res *http.Response) string {
	t.Helper()
	defer res.Body.Close()
	var body errorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body.Error
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{user: &model.User{ID: testUID, Email: "alice@example.com"}}
	h := newTestHandler(t, svc)

	res := do(t, h, http.MethodPost, "/api/user/register", credentialsRequest{Email: "alice@example.com", Password: "secret"}, nil)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Cookies())

	var identity model.Identity
	require.NoError(t, json.NewDecoder(res.Body).Decode(&identity))
	assert.Equal(t, testUID, identity.UID)
	assert.Equal(t, "alice@example.com", identity.Email)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	res := do(t, h, http.MethodGet, "/api/health", nil, nil)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	h = newTestHandler(t, &stubService{pingErr: errors.New("connection refused")})
	res = do(t, h, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Equal(t, "unavailable", errorCode(t, res))
}

func TestAuth_ErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
		code   string
	}{
		{name: "weak password", path: "/api/user/register", err: service.ErrWeakPassword, status: http.StatusBadRequest, code: "weak-password"},
		{name: "email in use", path: "/api/user/register", err: service.ErrEmailInUse, status: http.StatusConflict, code: "email-already-in-use"},
		{name: "wrong admin code", path: "/api/user/register/admin", err: service.ErrInvalidAdminCode, status: http.StatusForbidden, code: "invalid-admin-code"},
		{name: "invalid credential", path: "/api/user/login", err: service.ErrInvalidCredential, status: http.StatusUnauthorized, code: "invalid-credential"},
		{name: "internal", path: "/api/user/login", err: errors.New("db down"), status: http.StatusInternalServerError, code: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{userErr: tt.err})

			res := do(t, h, http.MethodPost, tt.path, credentialsRequest{Email: "a@b.c", Password: "x"}, nil)

			assert.Equal(t, tt.status, res.StatusCode)
			assert.Empty(t, res.Cookies())
			assert.Equal(t, tt.code, errorCode(t, res))
		})
	}
}

func TestLogin_BadJSON(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe(t *testing.T) {
	t.Run("without cookie", func(t *testing.T) {
		h := newTestHandler(t, &stubService{})
		res := do(t, h, http.MethodGet, "/api/user/me", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "permission-denied", errorCode(t, res))
	})

	t.Run("with cookie", func(t *testing.T) {
		h := newTestHandler(t, &stubService{user: &model.User{ID: testUID, Email: "alice@example.com", DisplayName: "Alice"}})
		res := do(t, h, http.MethodGet, "/api/user/me", nil, authCookie(t, h, testUID))
		defer res.Body.Close()

		require.Equal(t, http.StatusOK, res.StatusCode)
		var identity model.Identity
		require.NoError(t, json.NewDecoder(res.Body).Decode(&identity))
		assert.Equal(t, "Alice", identity.DisplayName)
	})

	t.Run("deleted user clears cookie", func(t *testing.T) {
		h := newTestHandler(t, &stubService{userErr: service.ErrUserNotFound})
		res := do(t, h, http.MethodGet, "/api/user/me", nil, authCookie(t, h, testUID))

		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		require.NotEmpty(t, res.Cookies())
		assert.Negative(t, res.Cookies()[0].MaxAge)
		assert.Equal(t, "user-not-found", errorCode(t, res))
	})
}

func TestAccountOperations(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		auth   bool
		err    error
		status int
	}{
		{name: "logout", method: http.MethodPost, path: "/api/user/logout", status: http.StatusOK},
		{name: "reset", method: http.MethodPost, path: "/api/user/password/reset", body: map[string]string{"email": "a@b.c"}, status: http.StatusAccepted},
		{name: "reset unknown", method: http.MethodPost, path: "/api/user/password/reset", body: map[string]string{"email": "a@b.c"}, err: service.ErrUserNotFound, status: http.StatusNotFound},
		{name: "confirm", method: http.MethodPost, path: "/api/user/password/confirm", body: map[string]string{"token": "t", "password": "newsecret"}, status: http.StatusOK},
		{name: "confirm bad token", method: http.MethodPost, path: "/api/user/password/confirm", body: map[string]string{"token": "t", "password": "newsecret"}, err: service.ErrInvalidActionCode, status: http.StatusBadRequest},
		{name: "confirm without token", method: http.MethodPost, path: "/api/user/password/confirm", body: map[string]string{"password": "newsecret"}, status: http.StatusBadRequest},
		{name: "update password", method: http.MethodPut, path: "/api/user/password", body: map[string]string{"password": "newsecret"}, auth: true, status: http.StatusOK},
		{name: "update password unauthenticated", method: http.MethodPut, path: "/api/user/password", body: map[string]string{"password": "newsecret"}, status: http.StatusUnauthorized},
		{name: "reauthenticate", method: http.MethodPost, path: "/api/user/reauthenticate", body: credentialsRequest{Email: "a@b.c", Password: "secret"}, auth: true, status: http.StatusOK},
		{name: "reauthenticate wrong", method: http.MethodPost, path: "/api/user/reauthenticate", body: credentialsRequest{Email: "a@b.c", Password: "x"}, auth: true, err: service.ErrInvalidCredential, status: http.StatusUnauthorized},
		{name: "delete account", method: http.MethodDelete, path: "/api/user", auth: true, status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{opErr: tt.err})

			var cookie *http.Cookie
			if tt.auth {
				cookie = authCookie(t, h, testUID)
			}

			res := do(t, h, tt.method, tt.path, tt.body, cookie)
			defer res.Body.Close()
			assert.Equal(t, tt.status, res.StatusCode)
		})
	}
}

func TestGetAdminStatus(t *testing.T) {
	svc := &stubService{isAdmin: true}
	h := newTestHandler(t, svc)
	cookie := authCookie(t, h, testUID)

	res := do(t, h, http.MethodGet, "/api/users/"+testUID+"/admin", nil, cookie)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body map[string]bool
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.True(t, body["isAdmin"])
	assert.Equal(t, testUID, svc.requester)

	res = do(t, h, http.MethodGet, "/api/users/someone-else/admin", nil, cookie)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "permission-denied", errorCode(t, res))
}

func TestUserData(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	cookie := authCookie(t, h, testUID)
	path := "/api/users/" + testUID + "/data"

	res := do(t, h, http.MethodPut, path, map[string]any{"theme": "dark"}, cookie)
	res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "dark", svc.data["theme"])

	res = do(t, h, http.MethodGet, path, nil, cookie)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "dark", got["theme"])

	res = do(t, h, http.MethodPut, path, []int{1, 2}, cookie)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "invalid-argument", errorCode(t, res))
}

func TestPlaceOrder(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	item := model.OrderItemFromRecord(model.Record{"productId": "p1", "title": "Shirt", "quantity": 2, "price": "$10.00", "uniqueKey": "k1"})
	svc := &stubService{order: &model.Order{
		ID:        "o1",
		UserID:    testUID,
		Status:    model.OrderStatusPlaced,
		Items:     []model.OrderItem{item},
		CreatedAt: created,
	}}
	h := newTestHandler(t, svc)

	res := do(t, h, http.MethodPost, "/api/users/"+testUID+"/orders",
		map[string]any{"items": []model.Record{item.ToRecord()}}, authCookie(t, h, testUID))
	defer res.Body.Close()

	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.Len(t, svc.gotItems, 1)

	var body orderResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "o1", body.ID)
	assert.Equal(t, "PLACED", body.Status)
	assert.InDelta(t, 20.0, body.Total, 0.0001)
	assert.Equal(t, 2, body.ItemCount)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "k1", body.Items[0]["uniqueKey"])
}

func TestPlaceOrder_Empty(t *testing.T) {
	h := newTestHandler(t, &stubService{opErr: service.ErrInvalidArgument})

	res := do(t, h, http.MethodPost, "/api/users/"+testUID+"/orders", map[string]any{"items": []any{}}, authCookie(t, h, testUID))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "invalid-argument", errorCode(t, res))
}

func TestGetOrders_EmptyList(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := do(t, h, http.MethodGet, "/api/users/"+testUID+"/orders", nil, authCookie(t, h, testUID))
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var body []orderResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Empty(t, body)
}

func TestRouter_NotFound(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := do(t, h, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not-found", errorCode(t, res))
}
