package usecase

import (
	"context"
	"strings"

	"github.com/widyatama/otpgate/internal/pkg/clock"
	"github.com/widyatama/otpgate/internal/pkg/codegen"
	"github.com/widyatama/otpgate/internal/pkg/config"
	"github.com/widyatama/otpgate/internal/pkg/instrument"
	"github.com/widyatama/otpgate/internal/pkg/validator"
	"github.com/widyatama/otpgate/internal/verification/entity"
	"go.opentelemetry.io/otel/trace"
)

const defaultSMSTemplate = "Your verification code is {code}"

type repoStore interface {
	Put(ctx context.Context, session entity.Session) error
	Get(ctx context.Context, phoneKey string) (*entity.Session, error)
	IncrementAttempts(ctx context.Context, phoneKey string) (int, error)
	Clear(ctx context.Context, phoneKey string) error
}

type repoSMS interface {
	Send(ctx context.Context, to, body string) error
}

type Usecase struct {
	repoStore repoStore
	repoSMS   repoSMS
	generator codegen.Generator
	cfg       config.Config
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation
}

type Dependency struct {
	RepoStore  repoStore
	RepoSMS    repoSMS
	Generator  codegen.Generator
	Config     config.Config
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func NewVerification(dep Dependency) *Usecase {
	return &Usecase{
		repoStore: dep.RepoStore,
		repoSMS:   dep.RepoSMS,
		generator: dep.Generator,
		cfg:       dep.Config,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.usecase").Start(ctx, name)
}

func (s *Usecase) maxAttempts() int {
	if n := s.cfg.GetInt("modules.verification.max_attempts"); n > 0 {
		return n
	}
	return 3
}

func (s *Usecase) smsBody(code string) string {
	tpl := s.cfg.GetString("modules.verification.sms_template")
	if tpl == "" {
		tpl = defaultSMSTemplate
	}
	return strings.ReplaceAll(tpl, "{code}", code)
}
