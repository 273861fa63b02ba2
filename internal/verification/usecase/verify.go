package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strconv"

	"github.com/widyatama/otpgate/internal/pkg/goerror"
	"github.com/widyatama/otpgate/internal/verification/entity"
)

type VerifyInput struct {
	Phone string `validate:"required,phone"`
	Code  string `validate:"required,numericcode"`
}

// Verify consumes one verification attempt for the phone number. A correct
// code destroys the session (single use); a wrong code reports the attempts
// remaining; crossing the attempt ceiling destroys the session and is
// terminal for the current code.
func (s *Usecase) Verify(ctx context.Context, in VerifyInput) error {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	phoneKey, ok := entity.NormalizePhone(in.Phone)
	if !ok {
		return goerror.NewBusiness("phone number must contain at least 10 digits", goerror.CodeInvalidInput)
	}

	session, err := s.repoStore.Get(ctx, phoneKey)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get session", "phone_key", phoneKey, "error", err)
		return goerror.NewServer(err)
	}
	if session == nil {
		return goerror.NewBusiness("no active verification session for this phone number", goerror.CodeNotFound)
	}

	maxAttempts := s.maxAttempts()

	if session.Attempts >= maxAttempts {
		return s.exhaust(ctx, phoneKey)
	}

	attempts, err := s.repoStore.IncrementAttempts(ctx, phoneKey)
	if errors.Is(err, goerror.ErrNotFound) {
		// The session vanished between read and increment (expired or a
		// concurrent verify consumed it).
		return goerror.NewBusiness("no active verification session for this phone number", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo increment attempts", "phone_key", phoneKey, "error", err)
		return goerror.NewServer(err)
	}

	if attempts > maxAttempts {
		return s.exhaust(ctx, phoneKey)
	}

	if subtle.ConstantTimeCompare([]byte(in.Code), []byte(session.Code)) == 1 {
		if err := s.repoStore.Clear(ctx, phoneKey); err != nil {
			slog.ErrorContext(ctx, "failed to repo clear session after match", "phone_key", phoneKey, "error", err)
			return goerror.NewServer(err)
		}
		slog.InfoContext(ctx, "phone number verified", "phone_key", phoneKey)
		return nil
	}

	remaining := maxAttempts - attempts
	if remaining <= 0 {
		return s.exhaust(ctx, phoneKey)
	}

	slog.WarnContext(ctx, "invalid verification code submitted", "phone_key", phoneKey, "attempts_remaining", remaining)
	return goerror.NewBusinessFields(
		"invalid verification code",
		goerror.CodeUnauthorized,
		map[string]string{"attempts_remaining": strconv.Itoa(remaining)},
	)
}

func (s *Usecase) exhaust(ctx context.Context, phoneKey string) error {
	if err := s.repoStore.Clear(ctx, phoneKey); err != nil {
		slog.ErrorContext(ctx, "failed to repo clear exhausted session", "phone_key", phoneKey, "error", err)
		return goerror.NewServer(err)
	}

	slog.WarnContext(ctx, "verification attempts exhausted", "phone_key", phoneKey)
	return goerror.NewBusiness("verification attempts exhausted, request a new code", goerror.CodeTooManyRequest)
}
