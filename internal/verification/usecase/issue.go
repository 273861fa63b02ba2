package usecase

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/widyatama/otpgate/internal/pkg/goerror"
	"github.com/widyatama/otpgate/internal/verification/entity"
)

type IssueInput struct {
	Phone string `validate:"required,phone"`
}

type IssueOutput struct {
	ExpiresIn int
	// Code is populated only when code exposure is enabled in configuration;
	// production deployments deliver the code exclusively through the
	// gateway chain.
	Code string
}

// Issue starts a verification session for the phone number and dispatches the
// code through the gateway chain. A live unexpired session throttles the
// request; a total dispatch failure rolls the session back so the caller can
// retry cleanly.
func (s *Usecase) Issue(ctx context.Context, in IssueInput) (*IssueOutput, error) {
	ctx, span := s.startSpan(ctx, "Issue")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	phoneKey, ok := entity.NormalizePhone(in.Phone)
	if !ok {
		return nil, goerror.NewBusiness("phone number must contain at least 10 digits", goerror.CodeInvalidInput)
	}

	existing, err := s.repoStore.Get(ctx, phoneKey)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get session", "phone_key", phoneKey, "error", err)
		return nil, goerror.NewServer(err)
	}
	if existing != nil {
		remainingSecs := int(existing.Remaining(s.clock.Now()).Seconds())
		slog.WarnContext(ctx, "verification code already active", "phone_key", phoneKey, "retry_after_seconds", remainingSecs)
		return nil, goerror.NewBusinessFields(
			"a verification code is already active for this phone number",
			goerror.CodeTooManyRequest,
			map[string]string{"retry_after_seconds": strconv.Itoa(remainingSecs)},
		)
	}

	code, err := s.generator.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate verification code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	ttl := s.cfg.GetSecond("modules.verification.ttl_seconds")
	session := entity.Session{
		PhoneKey:  phoneKey,
		Code:      code,
		Attempts:  0,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.repoStore.Put(ctx, session); err != nil {
		slog.ErrorContext(ctx, "failed to repo put session", "phone_key", phoneKey, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoSMS.Send(ctx, phoneKey, s.smsBody(code)); err != nil {
		slog.ErrorContext(ctx, "failed to dispatch verification code", "phone_key", phoneKey, "error", err)

		// The session must never outlive a failed delivery; otherwise a
		// legitimate retry is throttled by a code nobody received. The
		// rollback runs even when the caller has gone away.
		clearCtx := context.WithoutCancel(ctx)
		if clearErr := s.repoStore.Clear(clearCtx, phoneKey); clearErr != nil {
			slog.ErrorContext(ctx, "failed to roll back session after dispatch failure", "phone_key", phoneKey, "error", clearErr)
			return nil, goerror.NewServer(clearErr)
		}

		return nil, goerror.NewBusiness("verification code could not be delivered", goerror.CodeUnavailable)
	}

	out := &IssueOutput{ExpiresIn: int(ttl.Seconds())}
	if s.cfg.GetBool("modules.verification.expose_code") {
		out.Code = code
	}

	return out, nil
}
