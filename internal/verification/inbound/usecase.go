package inbound

import (
	"context"

	"github.com/widyatama/otpgate/internal/verification/usecase"
)

type uc interface {
	Issue(ctx context.Context, in usecase.IssueInput) (*usecase.IssueOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) error
	Status(ctx context.Context, in usecase.StatusInput) (*usecase.StatusOutput, error)
}
