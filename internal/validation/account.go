// Package validation содержит функции валидации входных данных.
package validation

import (
	"crypto/subtle"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength задаёт минимальную длину пароля в символах.
const MinPasswordLength = 6

// MaxPasswordBytes задаёт предел bcrypt на длину пароля в байтах.
const MaxPasswordBytes = 72

// MaxDisplayNameLength задаёт максимальную длину отображаемого имени в символах.
const MaxDisplayNameLength = 64

// NormalizeEmail приводит адрес к нижнему регистру и проверяет его формат.
// Адреса с отображаемым именем ("Alice <a@b.c>") не принимаются.
func NormalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", false
	}

	at := strings.LastIndexByte(email, '@')
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return "", false
	}

	return email, true
}

// IsValidPassword проверяет длину пароля: не меньше MinPasswordLength символов и не больше MaxPasswordBytes байт.
func IsValidPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength && len(password) <= MaxPasswordBytes
}

// IsValidDisplayName проверяет отображаемое имя. Пустое имя допустимо.
func IsValidDisplayName(name string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(name)) <= MaxDisplayNameLength
}

// IsAdminCode сравнивает код администратора за постоянное время. Пустой ожидаемый код отключает регистрацию администраторов.
func IsAdminCode(expected, got string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
