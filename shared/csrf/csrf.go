// Package csrf implements double-submit protection for requests authenticated by the
// access token cookie. Bearer-token clients are not affected.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

const (
	TokenLength = 32 // bytes
	CookieName  = "csrfToken"
	HeaderName  = "X-CSRF-Token"

	accessCookie = "accessToken"
)

// GenerateToken creates a cryptographically secure random token
func GenerateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// ValidateToken compares the cookie token with the header token.
func ValidateToken(cookieToken, headerToken string) bool {
	if cookieToken == "" || headerToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) == 1
}

// SetCookie issues a token readable by the browser client, which echoes it in
// HeaderName.
func SetCookie(w http.ResponseWriter, token string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     CookieName,
		Value:    token,
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func ClearCookie(w http.ResponseWriter, secure bool) {
	SetCookie(w, "", -1, secure)
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Protect rejects unsafe requests that carry the access cookie without a matching
// token header.
func Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := r.Cookie(accessCookie); err != nil {
			next.ServeHTTP(w, r)
			return
		}

		var cookieToken string
		if c, err := r.Cookie(CookieName); err == nil {
			cookieToken = c.Value
		}
		if !ValidateToken(cookieToken, r.Header.Get(HeaderName)) {
			http.Error(w, "Invalid CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
