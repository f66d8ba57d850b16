package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"charity/internal/bootstrap"
	"charity/internal/certificate"
	"charity/internal/donation"
	httpapi "charity/internal/http"
	"charity/internal/http/handlers"
	"charity/internal/infra"
	"charity/internal/infra/geoip"
	"charity/internal/metrics"
	"charity/internal/middleware"
	"charity/internal/storage"
	"charity/internal/volunteer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := infra.SetupTracing(ctx, cfg, "charity-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure tracing")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("flush traces")
		}
	}()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open stores")
	}
	defer stores.Close()

	publisher, closePublisher, err := bootstrap.Publisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure event publisher")
	}
	defer closePublisher()

	objects, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	gateway, notificationKey, err := bootstrap.Gateway(ctx, cfg, stores, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure payment gateway")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	lifecycle := metrics.New(registry)

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	queue := certificate.NewQueue(stores.Jobs)
	app := &handlers.App{
		Donations: donation.NewService(donation.Deps{
			Settings:        stores.Projects,
			Aggregates:      stores.Projects,
			Donations:       stores.Donations,
			Sequence:        stores.Tracking,
			Gateway:         gateway,
			Certificates:    queue,
			Receipts:        objects,
			Events:          publisher,
			Metrics:         lifecycle,
			Logger:          logger,
			DefaultCurrency: cfg.DefaultCurrency,
		}),
		Volunteers: volunteer.NewService(volunteer.Deps{
			Settings:      stores.Projects,
			Aggregates:    stores.Projects,
			Registrations: stores.Volunteers,
			Certificates:  queue,
			Events:        publisher,
			Metrics:       lifecycle,
			Logger:        logger,
		}),
		NotificationKey: notificationKey,
		Logger:          logger,
	}
	if stores.Ping != nil {
		app.Ready = func(r *http.Request) error { return stores.Ping(r.Context()) }
	}

	var lookup middleware.CountryLookup
	if l := resolver.Lookup(); l != nil {
		lookup = l
	}
	staticDir := ""
	if fs, ok := objects.(*storage.FileStore); ok {
		staticDir = fs.BasePath()
	}
	router := httpapi.NewRouter(app, httpapi.Config{
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   lookup,
		Metrics:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		StaticDir:       staticDir,
		Logger:          logger,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Str("gateway", gateway.Name()).Msg("API listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.CertWorkerInline {
		worker := certificate.NewWorker(certificate.WorkerDeps{
			Jobs:       stores.Jobs,
			Donations:  stores.Donations,
			Volunteers: stores.Volunteers,
			Projects:   stores.Projects,
			Issuer:     certificate.NewHTMLIssuer(objects, language.Make(cfg.DefaultLocale)),
			Mailer:     bootstrap.Mailer(cfg, logger),
			Metrics:    lifecycle,
			Logger:     logger,
		}, certificate.WorkerConfig{
			PollInterval: cfg.CertPollInterval,
			MaxAttempts:  cfg.CertMaxAttempts,
			BackoffBase:  cfg.CertBackoffBase,
			BackoffMax:   cfg.CertBackoffMax,
		})
		g.Go(func() error { return worker.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
