package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"github.com/widyatama/otpgate/internal/pkg/clock"
	"github.com/widyatama/otpgate/internal/pkg/config"
	"github.com/widyatama/otpgate/internal/pkg/instrument"
	"github.com/widyatama/otpgate/internal/pkg/router"
	"github.com/widyatama/otpgate/internal/pkg/sms"
	"github.com/widyatama/otpgate/internal/pkg/uid"
	"github.com/widyatama/otpgate/internal/pkg/validator"
)

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator
}

// initDatabase opens the postgres pool only when the session store is
// configured for it; a memory or redis deployment never dials the database.
func (a *App) initDatabase() {
	if a.storeDriver() != "postgres" {
		return
	}

	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	a.dbConn = pool
}

func (a *App) initCache() {
	if a.storeDriver() != "redis" {
		return
	}

	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
}

func (a *App) initGateways() {
	names := lo.Uniq(lo.Map(a.config.GetArray("modules.verification.gateways"), func(name string, _ int) string {
		return strings.ToLower(strings.TrimSpace(name))
	}))
	if len(names) == 0 {
		names = []string{"console"}
	}

	gateways := make([]sms.Gateway, 0, len(names))
	for _, name := range names {
		switch name {
		case "twilio":
			gw, err := sms.NewTwilio(sms.TwilioConfig{
				AccountSID: a.config.GetString("sms.twilio.account_sid"),
				AuthToken:  a.config.GetString("sms.twilio.auth_token"),
				From:       a.config.GetString("sms.twilio.from"),
			})
			if err != nil {
				slog.Error("failed to init twilio gateway", "error", err)
				os.Exit(1)
			}
			gateways = append(gateways, gw)
		case "vonage":
			gw, err := sms.NewVonage(sms.VonageConfig{
				APIKey:    a.config.GetString("sms.vonage.api_key"),
				APISecret: a.config.GetString("sms.vonage.api_secret"),
				From:      a.config.GetString("sms.vonage.from"),
			})
			if err != nil {
				slog.Error("failed to init vonage gateway", "error", err)
				os.Exit(1)
			}
			gateways = append(gateways, gw)
		case "console":
			gateways = append(gateways, sms.NewConsole())
		default:
			slog.Error("unknown sms gateway in configuration", "gateway", name)
			os.Exit(1)
		}
	}

	chain, err := sms.NewChain(gateways,
		sms.WithGatewayTimeout(a.config.GetSecond("modules.verification.gateway_timeout_seconds")))
	if err != nil {
		slog.Error("failed to init sms gateway chain", "error", err)
		os.Exit(1)
	}

	a.smsGateway = chain
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				if a.cacheConn == nil {
					return nil
				}

				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				if a.dbConn != nil {
					a.dbConn.Close()
				}

				return nil
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}

func (a *App) storeDriver() string {
	return strings.TrimSpace(a.config.GetString("modules.verification.store_driver"))
}
