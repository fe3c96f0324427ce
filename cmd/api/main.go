package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/automaxprocs/maxprocs"

	"escrow/internal/adapter/repo"
	"escrow/internal/domain"
	"escrow/internal/escrow"
	"escrow/internal/http/handlers"
	httpapi "escrow/internal/http/httpapi"
	"escrow/internal/infra"
	"escrow/internal/infra/geoip"
	"escrow/internal/middleware"
	"escrow/internal/token"
)

func main() {
	// .env is optional.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug().Msgf(format, args...)
	})); err != nil {
		logger.Warn().Err(err).Msg("failed to set GOMAXPROCS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infra.NewMetrics(reg)

	var (
		events domain.EventRepository
		ledger domain.TokenLedger
	)
	if cfg.Persistent() {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		runner := infra.NewSQLRunner(pool, logger)
		events = repo.NewEventRepository(runner)
		// Each transfer commits together with its event row.
		ledger = repo.NewTokenRepository(runner, domain.Account(cfg.EscrowAccount))
	} else {
		ledger = token.NewMemory(domain.Account(cfg.EscrowAccount))
	}

	publishers := escrow.MultiPublisher{metrics}
	if cfg.AppEnv == "development" {
		publishers = append(publishers, escrow.LogPublisher{Logger: logger})
	}

	opts := escrow.Options{
		Admin:     domain.Account(cfg.AdminAccount),
		Token:     ledger,
		Publisher: publishers,
		Logger:    logger,
	}
	if events != nil {
		opts.Journal = events
	}
	engine, err := escrow.New(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build escrow engine")
	}

	if events != nil {
		history, err := events.ListAll(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load event log")
		}
		if err := engine.Replay(history); err != nil {
			logger.Fatal().Err(err).Msg("failed to replay event log")
		}
		for _, ev := range history {
			metrics.Observe(ev)
		}
		logger.Info().Int("events", len(history)).Int("campaigns", len(engine.GetAllCampaignIDs())).Msg("event log replayed")
	}

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()
	var lookup middleware.CountryLookup
	if resolver != nil {
		lookup = resolver.Lookup
	}

	app := handlers.NewApp(engine, ledger, events, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		JWTIssuer:       cfg.JWTIssuer,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOrigins,
		CountryLookup:   lookup,
		Gatherer:        reg,
	})

	if cfg.KeeperInterval > 0 {
		keeper := escrow.NewKeeper(engine, cfg.KeeperInterval, logger)
		go func() {
			if err := keeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("keeper stopped")
			}
		}()
	}

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
