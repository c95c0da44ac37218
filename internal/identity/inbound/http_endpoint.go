package inbound

import (
	"net/http"

	"github.com/shandysiswandi/passgate/internal/identity/usecase"
	"github.com/shandysiswandi/passgate/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for registration and session workflows.
type HTTPEndpoint struct {
	uc            uc
	secureCookies bool
}

// Register sends a verification code to the provided email.
// @Summary Start registration
// @Description Checks the rate limits and emails a one-time code. Nothing is stored until the code is verified.
// @Tags Identity, Registration
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 200 {object} router.successResponse{data=RegisterResponse} "Code issued"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 409 {object} router.errorResponse "User already exists"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 423 {object} router.errorResponse "Account temporarily locked"
// @Failure 429 {object} router.errorResponse "Cooldown or too many requests"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/register [post]
func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return nil, err
	}

	return RegisterResponse{
		Email:          resp.Email,
		ExpiresAt:      resp.ExpiresAt,
		DeliveryStatus: resp.DeliveryStatus,
	}, nil
}

// RegisterVerify verifies the code and creates the account.
// @Summary Complete registration
// @Description Verifies the one-time code and creates the user.
// @Tags Identity, Registration
// @Accept json
// @Produce json
// @Param request body RegisterVerifyRequest true "Verification payload"
// @Success 201 {object} router.successResponse{data=RegisterVerifyResponse} "User created"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 409 {object} router.errorResponse "User already exists"
// @Failure 422 {object} router.errorResponse "Incorrect, expired or invalid code"
// @Failure 423 {object} router.errorResponse "Account temporarily locked"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/register/verify [post]
func (h *HTTPEndpoint) RegisterVerify(r *router.Request) (any, error) {
	var req RegisterVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RegisterVerify(r.Context(), usecase.RegisterVerifyInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		OTP:      req.OTP,
	})
	if err != nil {
		return nil, err
	}

	return RegisterVerifyResponse{User: UserResponse{
		ID:        resp.ID,
		Email:     resp.Email,
		FullName:  resp.FullName,
		CreatedAt: resp.CreatedAt,
	}}, nil
}

// Login authenticates a user and sets the token cookies.
// @Summary Authenticate user
// @Description Validates credentials, sets HTTP-only access/refresh cookies and echoes the tokens.
// @Tags Identity, Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} router.successResponse{data=LoginResponse} "Authentication result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid credentials"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/login [post]
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{
		User:             UserResponse{ID: resp.ID, Email: resp.Email, FullName: resp.FullName},
		AccessToken:      resp.AccessToken,
		AccessExpiresAt:  resp.AccessExpiresAt,
		RefreshToken:     resp.RefreshToken,
		RefreshExpiresAt: resp.RefreshExpiresAt,
		cookies: []*http.Cookie{
			tokenCookie(cookieAccessToken, resp.AccessToken, "/", resp.AccessExpiresAt, h.secureCookies),
			tokenCookie(cookieRefreshToken, resp.RefreshToken, refreshCookiePath, resp.RefreshExpiresAt, h.secureCookies),
		},
	}, nil
}

// RefreshToken issues a new access token from the refresh cookie or body.
// @Summary Refresh access token
// @Description Exchanges a refresh token for a new access token. The refresh token is kept.
// @Tags Identity, Authentication
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest false "Refresh token payload, optional when the cookie is sent"
// @Success 200 {object} router.successResponse{data=RefreshTokenResponse} "Token refresh result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid refresh token"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/refresh [post]
func (h *HTTPEndpoint) RefreshToken(r *router.Request) (any, error) {
	var req RefreshTokenRequest
	if err := r.DecodeBody(&req, true); err != nil {
		return nil, err
	}
	if req.RefreshToken == "" {
		req.RefreshToken = r.GetCookie(cookieRefreshToken)
	}

	resp, err := h.uc.RefreshToken(r.Context(), usecase.RefreshTokenInput{RefreshToken: req.RefreshToken})
	if err != nil {
		return nil, err
	}

	return RefreshTokenResponse{
		AccessToken:     resp.AccessToken,
		AccessExpiresAt: resp.AccessExpiresAt,
		cookies: []*http.Cookie{
			tokenCookie(cookieAccessToken, resp.AccessToken, "/", resp.AccessExpiresAt, h.secureCookies),
		},
	}, nil
}

// Profile returns the authenticated user.
// @Summary Get profile
// @Tags Identity, Profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=ProfileResponse} "Profile result"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/profile [get]
func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	resp, err := h.uc.Profile(r.Context())
	if err != nil {
		return nil, err
	}

	return ProfileResponse{User: UserResponse{
		ID:        resp.ID,
		Email:     resp.Email,
		FullName:  resp.FullName,
		CreatedAt: resp.CreatedAt,
	}}, nil
}
