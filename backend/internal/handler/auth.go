package handler

import (
	"net/http"
	"time"

	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/csrf"
	"github.com/itchan-dev/modpolicy/shared/domain"
	mw "github.com/itchan-dev/modpolicy/shared/middleware"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

const (
	refreshCookie     = "refreshToken"
	refreshCookiePath = "/v1/auth"
)

// Register handles POST /v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body api.RegisterRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.auth.Register(r.Context(), body.Email, body.Password, body.Nickname); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeCreated(w, api.MessageResponse{Message: "The confirmation code has been sent by email"})
}

// ConfirmEmail handles POST /v1/auth/confirm
func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	var body api.ConfirmEmailRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.auth.ConfirmEmail(r.Context(), body.Email, body.ConfirmationCode); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, api.MessageResponse{Message: "Email confirmed. You can login now"})
}

// Login handles POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body api.LoginRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	pair, err := h.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.setTokenCookies(w, pair); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewTokenResponse(pair.AccessToken, pair.RefreshToken, pair.ExpiresAt))
}

// Refresh handles POST /v1/auth/refresh. The token comes from the body or the
// refresh cookie.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshToken(r)
	if token == "" {
		http.Error(w, "Refresh token is missing", http.StatusUnauthorized)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		h.clearTokenCookies(w)
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.setTokenCookies(w, pair); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewTokenResponse(pair.AccessToken, pair.RefreshToken, pair.ExpiresAt))
}

// Logout handles POST /v1/auth/logout. It succeeds even without a token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := refreshToken(r); token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			utils.WriteErrorAndStatusCode(w, err)
			return
		}
	}

	h.clearTokenCookies(w)
	writeJSON(w, api.MessageResponse{Message: "You logged out"})
}

func refreshToken(r *http.Request) string {
	var body api.RefreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := utils.Decode(r.Body, &body); err == nil && body.RefreshToken != "" {
			return body.RefreshToken
		}
	}
	if cookie, err := r.Cookie(refreshCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// setTokenCookies also issues a fresh CSRF token bound to the new access cookie.
func (h *Handler) setTokenCookies(w http.ResponseWriter, pair domain.TokenPair) error {
	secure := h.cfg.Public.SecureCookies
	csrfToken, err := csrf.GenerateToken()
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "accessToken",
		Value:    pair.AccessToken,
		Expires:  pair.ExpiresAt,
		MaxAge:   int(time.Until(pair.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Path:     refreshCookiePath,
		Name:     refreshCookie,
		Value:    pair.RefreshToken,
		MaxAge:   int(h.cfg.Public.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	csrf.SetCookie(w, csrfToken, int(time.Until(pair.ExpiresAt).Seconds()), secure)
	return nil
}

func (h *Handler) clearTokenCookies(w http.ResponseWriter) {
	mw.ClearAccessCookie(w, h.cfg.Public.SecureCookies)
	csrf.ClearCookie(w, h.cfg.Public.SecureCookies)
	http.SetCookie(w, &http.Cookie{
		Path:     refreshCookiePath,
		Name:     refreshCookie,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Public.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
