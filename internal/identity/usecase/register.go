package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
	"github.com/shandysiswandi/passgate/internal/identity/passcode"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
)

type RegisterInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
	FullName string `validate:"required,min=2,max=100"`
}

type RegisterOutput struct {
	Email          string
	ExpiresAt      time.Time
	DeliveryStatus string
}

// Register sends a verification code to a new identity. Nothing is
// persisted until RegisterVerify succeeds.
func (s *Usecase) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	_, err := s.repoDB.FindUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, errUserExists
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo find user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	decision, err := s.guard.Check(ctx, in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check otp issuance guard", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !decision.Allowed {
		slog.WarnContext(ctx, "otp issuance denied", "email", in.Email, "reason", decision.Reason.String())
		return nil, s.denial(ctx, decision.Reason, decision.RetryAfter, -1)
	}

	issued, err := s.issuer.Issue(ctx, passcode.IssueInput{
		Identity:    in.Email,
		DisplayName: in.FullName,
		TemplateRef: entity.TemplateRegisterOTP,
		Subject:     entity.SubjectRegisterOTP,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue otp", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}
	add(ctx, s.otpIssued)

	return &RegisterOutput{
		Email:          issued.Identity,
		ExpiresAt:      issued.ExpiresAt,
		DeliveryStatus: string(issued.Delivery),
	}, nil
}
