// Package client предоставляет HTTP-клиент сервиса gophershop: провайдер идентификации и хранилище документов.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmeshcher/gophershop/internal/model"
)

// APIError описывает ошибку, возвращённую сервисом. Текстом ошибки служит код провайдера, например "invalid-credential".
type APIError struct {
	StatusCode int
	Code       string
}

func (e *APIError) Error() string {
	return e.Code
}

// ErrNotSignedIn возвращается операциями, которым нужен вошедший пользователь.
var ErrNotSignedIn = errors.New("no-current-user")

// Client инкапсулирует HTTP-взаимодействие с сервисом и хранит текущего пользователя.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	current *model.Identity

	hub *hub
}

// NewClient создаёт клиент для сервиса по указанному адресу.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Jar:     jar,
		},
		hub: newHub(),
	}
}

// Restore пытается восстановить пользователя по сохранённой cookie.
func (c *Client) Restore(ctx context.Context) (*model.Identity, error) {
	var user model.Identity
	if err := c.do(ctx, http.MethodGet, "/api/user/me", nil, &user); err != nil {
		return nil, err
	}
	c.setCurrent(&user)
	return &user, nil
}

// CurrentUser возвращает текущего пользователя или nil.
func (c *Client) CurrentUser() *model.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Changes возвращает поток смены пользователя. Канал закрывается после отмены ctx.
func (c *Client) Changes(ctx context.Context) <-chan *model.Identity {
	return c.hub.subscribe(ctx)
}

func (c *Client) setCurrent(user *model.Identity) {
	c.mu.Lock()
	c.current = user
	c.mu.Unlock()
	c.hub.publish(user)
}

func (c *Client) currentUID() (string, error) {
	user := c.CurrentUser()
	if user == nil {
		return "", ErrNotSignedIn
	}
	return user.UID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("client not configured")
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Code: strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "-"))}
	}
	return &APIError{StatusCode: resp.StatusCode, Code: body.Error}
}

func userPath(uid, suffix string) string {
	return "/api/users/" + url.PathEscape(uid) + suffix
}
