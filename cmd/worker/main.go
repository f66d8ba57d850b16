package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/language"

	"charity/internal/bootstrap"
	"charity/internal/certificate"
	"charity/internal/infra"
	"charity/internal/metrics"
	"charity/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "drain the due jobs and exit instead of polling")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()
	if cfg.StoreDriver == "memory" {
		logger.Fatal().Msg("worker: the memory store is private to the API process; set CERT_WORKER_INLINE=true instead")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := infra.SetupTracing(ctx, cfg, "charity-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure tracing")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("worker: flush traces")
		}
	}()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to open stores")
	}
	defer stores.Close()

	objects, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	worker := certificate.NewWorker(certificate.WorkerDeps{
		Jobs:       stores.Jobs,
		Donations:  stores.Donations,
		Volunteers: stores.Volunteers,
		Projects:   stores.Projects,
		Issuer:     certificate.NewHTMLIssuer(objects, language.Make(cfg.DefaultLocale)),
		Mailer:     bootstrap.Mailer(cfg, logger),
		Metrics:    metrics.New(prometheus.DefaultRegisterer),
		Logger:     logger,
	}, certificate.WorkerConfig{
		PollInterval: cfg.CertPollInterval,
		MaxAttempts:  cfg.CertMaxAttempts,
		BackoffBase:  cfg.CertBackoffBase,
		BackoffMax:   cfg.CertBackoffMax,
	})

	if *once {
		processed := 0
		for {
			worked, err := worker.RunOnce(ctx)
			if err != nil {
				logger.Fatal().Err(err).Msg("worker: claim failed")
			}
			if !worked {
				break
			}
			processed++
		}
		logger.Info().Int("processed", processed).Msg("worker: queue drained")
		return
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
