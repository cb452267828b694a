package client

import (
	"context"
	"net/http"

	"github.com/mmeshcher/gophershop/internal/model"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminRegistration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	AdminCode   string `json:"adminCode"`
}

// SignIn выполняет вход по email и паролю.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	return c.authenticate(ctx, "/api/user/login", credentials{Email: email, Password: password})
}

// SignUp регистрирует пользователя и выполняет вход.
func (c *Client) SignUp(ctx context.Context, email, password string) (*model.Identity, error) {
	return c.authenticate(ctx, "/api/user/register", credentials{Email: email, Password: password})
}

// SignUpAdmin регистрирует администратора по коду.
func (c *Client) SignUpAdmin(ctx context.Context, email, password, displayName, adminCode string) (*model.Identity, error) {
	return c.authenticate(ctx, "/api/user/register/admin", adminRegistration{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
		AdminCode:   adminCode,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*model.Identity, error) {
	var user model.Identity
	if err := c.do(ctx, http.MethodPost, path, body, &user); err != nil {
		return nil, err
	}
	c.setCurrent(&user)
	return &user, nil
}

// SignOut завершает сессию. Локальный пользователь сбрасывается даже при ошибке сервера.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/user/logout", nil, nil)
	c.setCurrent(nil)
	return err
}

// SendPasswordReset запрашивает сброс пароля.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/user/password/reset", map[string]string{"email": email}, nil)
}

// ConfirmPasswordReset устанавливает новый пароль по токену сброса.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return c.do(ctx, http.MethodPost, "/api/user/password/confirm", map[string]string{
		"token":    token,
		"password": newPassword,
	}, nil)
}

// UpdatePassword меняет пароль текущего пользователя.
func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	if c.CurrentUser() == nil {
		return ErrNotSignedIn
	}
	return c.do(ctx, http.MethodPut, "/api/user/password", map[string]string{"password": newPassword}, nil)
}

// DeleteAccount удаляет учётную запись текущего пользователя.
func (c *Client) DeleteAccount(ctx context.Context) error {
	if c.CurrentUser() == nil {
		return ErrNotSignedIn
	}
	if err := c.do(ctx, http.MethodDelete, "/api/user", nil, nil); err != nil {
		return err
	}
	c.setCurrent(nil)
	return nil
}

// Reauthenticate повторно проверяет учётные данные текущего пользователя.
func (c *Client) Reauthenticate(ctx context.Context, email, password string) error {
	if c.CurrentUser() == nil {
		return ErrNotSignedIn
	}
	return c.do(ctx, http.MethodPost, "/api/user/reauthenticate", credentials{Email: email, Password: password}, nil)
}
