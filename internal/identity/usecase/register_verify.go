package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"github.com/shandysiswandi/passgate/internal/pkg/idempotency"
)

type RegisterVerifyInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
	FullName string `validate:"required,min=2,max=100"`
	OTP      string `validate:"required,otpcode"`
}

type RegisterVerifyOutput struct {
	ID        int64
	Email     string
	FullName  string
	CreatedAt time.Time
}

// RegisterVerify checks the code and creates the user. Concurrent calls for
// the same email are rejected while one is running.
func (s *Usecase) RegisterVerify(ctx context.Context, in RegisterVerifyInput) (*RegisterVerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "RegisterVerify")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.OTP = strings.TrimSpace(in.OTP)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	release, err := s.inflight.Acquire(ctx, "register_verify:"+in.Email, s.inflightTTL)
	if errors.Is(err, idempotency.ErrAlreadyInProgress) {
		slog.WarnContext(ctx, "register verify already in progress", "email", in.Email)
		return nil, goerror.NewPolicy(goerror.CodeTooManyRequest, "REQUEST_IN_PROGRESS", "Verification already in progress", time.Second, -1)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to acquire register verify lock", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}
	defer func() {
		if err := release(ctx); err != nil {
			slog.WarnContext(ctx, "failed to release register verify lock", "email", in.Email, "error", err)
		}
	}()

	_, err = s.repoDB.FindUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, errUserExists
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo find user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	res, err := s.verifier.Verify(ctx, in.Email, in.OTP)
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify otp", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !res.Verified {
		slog.WarnContext(ctx, "otp verification denied", "email", in.Email, "reason", res.Reason.String())
		return nil, s.denial(ctx, res.Reason, res.RetryAfter, res.AttemptsRemaining)
	}
	add(ctx, s.otpVerified)

	hashed, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	user, err := s.repoDB.CreateUser(ctx, entity.NewUser{
		ID:           s.uid.Generate(),
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: string(hashed),
	})
	if errors.Is(err, goerror.ErrConflict) {
		return nil, errUserExists
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &RegisterVerifyOutput{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		CreatedAt: user.CreatedAt,
	}, nil
}
