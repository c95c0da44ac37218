package inbound

import (
	"net/http"
	"time"
)

const (
	cookieAccessToken  = "access_token"
	cookieRefreshToken = "refresh_token"
	refreshCookiePath  = "/api/v1/identity/refresh"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type RegisterResponse struct {
	Email          string    `json:"email"`
	ExpiresAt      time.Time `json:"expires_at"`
	DeliveryStatus string    `json:"delivery_status" example:"sent"`
}

func (RegisterResponse) Message() string {
	return "Verification code sent. Please check your email."
}

type RegisterVerifyRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	OTP      string `json:"otp"`
}

type UserResponse struct {
	ID        int64     `json:"id,string"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterVerifyResponse struct {
	User UserResponse `json:"user"`
}

func (RegisterVerifyResponse) Message() string { return "Registration successful" }

func (RegisterVerifyResponse) StatusCode() int { return http.StatusCreated }

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User             UserResponse `json:"user"`
	AccessToken      string       `json:"access_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`

	cookies []*http.Cookie
}

func (LoginResponse) Message() string { return "Login successful" }

func (l LoginResponse) Cookies() []*http.Cookie { return l.cookies }

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`

	cookies []*http.Cookie
}

func (RefreshTokenResponse) Message() string { return "Token refreshed" }

func (r RefreshTokenResponse) Cookies() []*http.Cookie { return r.cookies }

type ProfileResponse struct {
	User UserResponse `json:"user"`
}

func tokenCookie(name, value, path string, expiresAt time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
