package inbound

import (
	"context"

	"github.com/shandysiswandi/passgate/internal/notification/usecase"
)

type uc interface {
	DeliverOTP(ctx context.Context, in usecase.DeliverOTPInput) error
}
