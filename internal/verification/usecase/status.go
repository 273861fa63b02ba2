package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/widyatama/otpgate/internal/pkg/goerror"
	"github.com/widyatama/otpgate/internal/verification/entity"
)

type StatusInput struct {
	Phone string `validate:"required,phone"`
}

type StatusOutput struct {
	Active    bool
	ExpiresIn int
}

// Status reports whether a live verification session exists for the phone
// number and how long it has left. An expired session counts as absent.
func (s *Usecase) Status(ctx context.Context, in StatusInput) (*StatusOutput, error) {
	ctx, span := s.startSpan(ctx, "Status")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	phoneKey, ok := entity.NormalizePhone(in.Phone)
	if !ok {
		return nil, goerror.NewBusiness("phone number must contain at least 10 digits", goerror.CodeInvalidInput)
	}

	session, err := s.repoStore.Get(ctx, phoneKey)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get session", "phone_key", phoneKey, "error", err)
		return nil, goerror.NewServer(err)
	}
	if session == nil {
		return &StatusOutput{}, nil
	}

	return &StatusOutput{
		Active:    true,
		ExpiresIn: int(session.Remaining(s.clock.Now()).Round(time.Second).Seconds()),
	}, nil
}
