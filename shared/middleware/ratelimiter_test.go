package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/middleware/ratelimiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withActor(r *http.Request, actor domain.Actor) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ActorKey, actor))
}

func TestRateLimit(t *testing.T) {
	t.Run("allows request within rate limit", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return "user1", nil })(okHandler())

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("error getting identity", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return "", errors.New("Test error") })(okHandler())

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("blocks request exceeding rate limit", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return "user1", nil })(okHandler())

		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w1.Code)

		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, w2.Code)
		assert.Equal(t, "Rate limit exceeded, try again later\n", w2.Body.String())
	})

	t.Run("administrators bypass the limit", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return "user1", nil })(okHandler())

		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, httptest.NewRequest("GET", "/", nil))
		require.Equal(t, http.StatusOK, w1.Code)

		moderator := domain.ModeratorActor{Account: uuid.New(), Member: uuid.New()}
		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, withActor(httptest.NewRequest("GET", "/", nil), moderator))
		assert.Equal(t, http.StatusTooManyRequests, w2.Code)

		admin := domain.AdministratorActor{Account: uuid.New(), Member: uuid.New()}
		w3 := httptest.NewRecorder()
		handler.ServeHTTP(w3, withActor(httptest.NewRequest("GET", "/", nil), admin))
		assert.Equal(t, http.StatusOK, w3.Code)
	})

	t.Run("identity function separates callers", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return r.Header.Get("X-Caller"), nil })(okHandler())

		send := func(caller string) int {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("X-Caller", caller)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			return w.Code
		}
		assert.Equal(t, http.StatusOK, send("a"))
		assert.Equal(t, http.StatusOK, send("b"))
		assert.Equal(t, http.StatusTooManyRequests, send("a"))
	})
}

func TestGetMemberIDFromContext(t *testing.T) {
	t.Run("returns member id when actor exists", func(t *testing.T) {
		member := uuid.New()
		req := withActor(httptest.NewRequest("GET", "/", nil), domain.MemberActor{Account: uuid.New(), Member: member})

		id, err := GetMemberIDFromContext(req)
		assert.NoError(t, err)
		assert.Equal(t, "member_"+member.String(), id)
	})

	t.Run("returns error without actor", func(t *testing.T) {
		id, err := GetMemberIDFromContext(httptest.NewRequest("GET", "/", nil))
		assert.Error(t, err)
		assert.Empty(t, id)
	})
}

func TestGetIP(t *testing.T) {
	t.Run("uses RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		ip, err := GetIP(req)
		assert.NoError(t, err)
		assert.Equal(t, "192.168.1.1", ip)
	})

	t.Run("ignores forwarding headers", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "203.0.113.50:12345"
		req.Header.Set("X-Real-IP", "10.0.0.1")
		req.Header.Set("X-Forwarded-For", "10.0.0.2")
		ip, err := GetIP(req)
		assert.NoError(t, err)
		assert.Equal(t, "203.0.113.50", ip)
	})

	t.Run("accepts address without port", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "::1"
		ip, err := GetIP(req)
		assert.NoError(t, err)
		assert.Equal(t, "::1", ip)
	})

	t.Run("rejects empty RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = ""
		_, err := GetIP(req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid IP address")
	})
}

func TestGetEmailFromBody(t *testing.T) {
	t.Run("returns email and keeps body", func(t *testing.T) {
		payload := `{"email":"user@test.com","password":"secret"}`
		req := httptest.NewRequest("POST", "/", bytes.NewBufferString(payload))

		email, err := GetEmailFromBody(req)
		require.NoError(t, err)
		assert.Equal(t, "user@test.com", email)

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		assert.JSONEq(t, payload, string(rest))
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := GetEmailFromBody(httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"password":"x"}`)))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := GetEmailFromBody(httptest.NewRequest("POST", "/", bytes.NewBufferString(`{invalid`)))
		assert.Error(t, err)
	})
}
