package inbound

import (
	"context"

	"github.com/shandysiswandi/passgate/internal/identity/usecase"
	"github.com/shandysiswandi/passgate/internal/pkg/router"
)

type uc interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.RegisterOutput, error)
	RegisterVerify(ctx context.Context, in usecase.RegisterVerifyInput) (*usecase.RegisterVerifyOutput, error)

	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	RefreshToken(ctx context.Context, in usecase.RefreshTokenInput) (*usecase.RefreshTokenOutput, error)

	Profile(ctx context.Context) (*usecase.ProfileOutput, error)
}

// HTTPConfig tunes the identity HTTP surface.
type HTTPConfig struct {
	// Limiter throttles the unauthenticated endpoints per client IP. Nil disables it.
	Limiter *router.IPRateLimiter
	// SecureCookies marks token cookies Secure (HTTPS only).
	SecureCookies bool
}

func RegisterHTTPEndpoint(r *router.Router, uc uc, cfg HTTPConfig) {
	end := &HTTPEndpoint{uc: uc, secureCookies: cfg.SecureCookies}

	var mws []router.Middleware
	if cfg.Limiter != nil {
		mws = append(mws, router.RateLimit(cfg.Limiter))
	}

	r.POST("/api/v1/identity/register", end.Register, mws...)
	r.POST("/api/v1/identity/register/verify", end.RegisterVerify, mws...)
	//
	r.POST("/api/v1/identity/login", end.Login, mws...)
	r.POST("/api/v1/identity/refresh", end.RefreshToken, mws...)

	// need authenticated
	r.GET("/api/v1/identity/profile", end.Profile)
}
