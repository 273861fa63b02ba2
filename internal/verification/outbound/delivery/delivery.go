// Package delivery adapts the sms gateway chain to the verification usecase.
package delivery

import (
	"context"

	"github.com/widyatama/otpgate/internal/pkg/instrument"
	"github.com/widyatama/otpgate/internal/pkg/sms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type SMS struct {
	gateway sms.Gateway
	ins     instrument.Instrumentation
}

func New(gateway sms.Gateway, ins instrument.Instrumentation) *SMS {
	return &SMS{gateway: gateway, ins: ins}
}

func (s *SMS) Send(ctx context.Context, to, body string) error {
	ctx, span := s.ins.Tracer("verification.outbound.delivery").Start(ctx, "Send")
	defer span.End()

	span.SetAttributes(attribute.String("sms.gateway", s.gateway.Name()))

	if err := s.gateway.Send(ctx, to, body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
