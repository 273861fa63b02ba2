// Package verification wires the phone verification module: code issuance,
// attempt-limited verification, and delivery through the SMS gateway chain.
package verification

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/widyatama/otpgate/internal/pkg/clock"
	"github.com/widyatama/otpgate/internal/pkg/codegen"
	"github.com/widyatama/otpgate/internal/pkg/config"
	"github.com/widyatama/otpgate/internal/pkg/instrument"
	"github.com/widyatama/otpgate/internal/pkg/router"
	"github.com/widyatama/otpgate/internal/pkg/sms"
	"github.com/widyatama/otpgate/internal/pkg/validator"
	"github.com/widyatama/otpgate/internal/verification/inbound"
	"github.com/widyatama/otpgate/internal/verification/outbound/delivery"
	"github.com/widyatama/otpgate/internal/verification/outbound/store"
	"github.com/widyatama/otpgate/internal/verification/usecase"
)

type Dependency struct {
	DBConn     *pgxpool.Pool
	Cache      *redis.Client
	SMSGateway sms.Gateway
	Config     config.Config
	Instrument instrument.Instrumentation
	Clock      clock.Clocker
	Validator  validator.Validator
	Router     *router.Router
}

func New(dep Dependency) error {
	repoStore, err := store.New(store.Config{
		Driver:     dep.Config.GetString("modules.verification.store_driver"),
		Redis:      dep.Cache,
		Pool:       dep.DBConn,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})
	if err != nil {
		return err
	}

	codeLength := dep.Config.GetInt("modules.verification.code_length")
	if codeLength == 0 {
		codeLength = 6
	}
	generator, err := codegen.NewNumeric(codeLength)
	if err != nil {
		return err
	}

	uc := usecase.NewVerification(usecase.Dependency{
		RepoStore:  repoStore,
		RepoSMS:    delivery.New(dep.SMSGateway, dep.Instrument),
		Generator:  generator,
		Config:     dep.Config,
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
