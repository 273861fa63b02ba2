package app

import (
	"log/slog"
	"os"

	"github.com/widyatama/otpgate/internal/verification"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.verification.enabled") {
		if err := verification.New(verification.Dependency{
			DBConn:     a.dbConn,
			Cache:      a.cacheConn,
			SMSGateway: a.smsGateway,
			Config:     a.config,
			Instrument: a.ins,
			Clock:      a.clock,
			Validator:  a.validator,
			Router:     a.router,
		}); err != nil {
			slog.Error("failed to init module verification", "error", err)
			os.Exit(1)
		}
	}
}
