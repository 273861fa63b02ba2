package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/widyatama/otpgate/internal/pkg/clock"
	"github.com/widyatama/otpgate/internal/pkg/config"
	"github.com/widyatama/otpgate/internal/pkg/instrument"
	"github.com/widyatama/otpgate/internal/pkg/router"
	"github.com/widyatama/otpgate/internal/pkg/sms"
	"github.com/widyatama/otpgate/internal/pkg/uid"
	"github.com/widyatama/otpgate/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	validator validator.Validator
	clock     clock.Clocker
	uuid      uid.StringID

	// resources
	dbConn     *pgxpool.Pool
	cacheConn  *redis.Client
	smsGateway sms.Gateway

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initDatabase()
	app.initCache()
	app.initGateways()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
