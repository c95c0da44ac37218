package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
)

type RefreshTokenInput struct {
	RefreshToken string `validate:"required"`
}

type RefreshTokenOutput struct {
	AccessToken     string
	AccessExpiresAt time.Time
}

var errInvalidRefresh = goerror.NewValidation("Invalid or expired refresh token", goerror.CodeUnauthorized)

// RefreshToken mints a new access token. The refresh token is not rotated.
func (s *Usecase) RefreshToken(ctx context.Context, in RefreshTokenInput) (*RefreshTokenOutput, error) {
	ctx, span := s.startSpan(ctx, "RefreshToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	token, exp, claims, err := s.tokens.RotateAccess(in.RefreshToken)
	if err != nil {
		slog.WarnContext(ctx, "refresh token rejected", "error", err)
		return nil, errInvalidRefresh
	}

	_, err = s.repoDB.FindUserByEmail(ctx, claims.Identity())
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh token for unknown user", "email", claims.Identity())
		return nil, goerror.NewAuthentication()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find user by email", "email", claims.Identity(), "error", err)
		return nil, goerror.NewServer(err)
	}

	return &RefreshTokenOutput{AccessToken: token, AccessExpiresAt: exp}, nil
}
