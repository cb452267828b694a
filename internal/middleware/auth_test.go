package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		if !ok {
			t.Fatalf("user id not in context")
		}
		if id != "3f1c0a52-6f1e-4a53-9c6d-1f0c2b7f9e11" {
			t.Fatalf("user id from context = %q", id)
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.SetAuthCookie(w, "3f1c0a52-6f1e-4a53-9c6d-1f0c2b7f9e11")
	res := w.Result()
	resCookies := res.Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithoutCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}
}

func TestAuthMiddleware_RejectsForeignSignature(t *testing.T) {
	issuer := NewAuthMiddleware("one-secret")
	verifier := NewAuthMiddleware("other-secret")

	w := httptest.NewRecorder()
	issuer.SetAuthCookie(w, "u1")

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(w.Result().Cookies()[0])

	if _, ok := verifier.UserID(r); ok {
		t.Fatalf("cookie signed with another secret accepted")
	}
	if id, ok := issuer.UserID(r); !ok || id != "u1" {
		t.Fatalf("UserID = %q, %v; want u1, true", id, ok)
	}
}

func TestAuthMiddleware_ParseCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	valid := m.sign("u1")

	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{name: "valid", value: valid, ok: true},
		{name: "no separator", value: "u1", ok: false},
		{name: "empty id", value: "." + m.signature(""), ok: false},
		{name: "tampered id", value: "u2" + valid[2:], ok: false},
		{name: "extra part", value: valid + ".x", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := m.parseCookie(tt.value); ok != tt.ok {
				t.Fatalf("parseCookie(%q) ok = %v, want %v", tt.value, ok, tt.ok)
			}
		})
	}
}

func TestClearAuthCookie(t *testing.T) {
	m := NewAuthMiddleware("")

	w := httptest.NewRecorder()
	m.ClearAuthCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != authCookieName || cookies[0].MaxAge >= 0 {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
}
