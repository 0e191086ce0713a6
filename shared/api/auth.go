package api

import "time"

// Request DTOs

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Nickname string `json:"nickname" validate:"required,max=64"`
}

type ConfirmEmailRequest struct {
	Email            string `json:"email" validate:"required,email"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest may be empty when the refresh token travels as a cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Response DTOs

type MessageResponse struct {
	Message string `json:"message"`
}

// TokenResponse carries tokens for non-cookie clients.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

func NewTokenResponse(access, refresh string, expiresAt time.Time) TokenResponse {
	return TokenResponse{AccessToken: access, RefreshToken: refresh, ExpiresAt: timestamp(expiresAt)}
}
