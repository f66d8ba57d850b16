// Package bootstrap assembles the stores and adapters shared by the binaries
// from an infra.Config.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"charity/internal/adapter/memstore"
	"charity/internal/adapter/redisstore"
	"charity/internal/adapter/repo"
	"charity/internal/domain"
	"charity/internal/events"
	"charity/internal/infra"
	"charity/internal/infra/credentials"
	"charity/internal/notify"
	"charity/internal/payment"
)

// Stores bundles the repositories for one STORE_DRIVER.
type Stores struct {
	Projects   domain.ProjectRepository
	Donations  domain.DonationRepository
	Volunteers domain.VolunteerRepository
	Jobs       domain.CertificateJobRepository
	Tracking   domain.TrackingSequence
	// SQL is nil for the memory driver.
	SQL infra.SQLExecutor
	// Ping checks the backing database; nil for the memory driver.
	Ping func(ctx context.Context) error

	closers []func()
}

// Close releases pools and clients in reverse order of creation.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// DemoProject is seeded into the memory store so a fresh server can take donations.
var DemoProject = domain.Project{
	ID:    "demo",
	Title: "Community Library",
	Slug:  "community-library",
	Donation: domain.DonationSettings{
		Enabled:        true,
		MinimumAmount:  10000,
		AllowAnonymous: true,
		ShowDonors:     true,
	},
	Volunteer: domain.VolunteerSettings{
		Enabled:       true,
		MaxVolunteers: 25,
	},
}

// OpenStores connects the repositories chosen by cfg.StoreDriver. When
// REDIS_URL is set tracking numbers come from Redis instead.
func OpenStores(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Stores, error) {
	s := &Stores{}
	switch cfg.StoreDriver {
	case "memory":
		mem := memstore.New()
		mem.Projects().Seed(DemoProject)
		s.Projects = mem.Projects()
		s.Donations = mem.Donations()
		s.Volunteers = mem.Volunteers()
		s.Jobs = mem.CertificateJobs()
		s.Tracking = mem.Tracking()
		logger.Warn().Str("project_id", DemoProject.ID).Msg("using in-memory store; data is lost on restart")
	case "postgres":
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		runner := infra.NewSQLRunner(pool, logger)
		s.SQL = runner
		s.Ping = pool.Ping
		s.Projects = repo.NewProjectRepository(runner)
		s.Donations = repo.NewDonationRepository(runner)
		s.Volunteers = repo.NewVolunteerRepository(runner)
		s.Jobs = repo.NewCertificateJobRepository(runner)
		s.Tracking = repo.NewTrackingSequence(runner)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.Tracking = redisstore.NewTrackingSequence(client, "")
		logger.Info().Msg("tracking sequence backed by redis")
	}
	return s, nil
}

// Publisher returns a Kafka publisher when brokers are configured, otherwise
// one that logs events. The returned func closes the publisher.
func Publisher(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (events.Publisher, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(logger), func() {}, nil
	}
	p, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing lifecycle events to kafka")
	return p, p.Close, nil
}

// Mailer returns an SMTP mailer when SMTP_HOST is set, otherwise one that logs.
func Mailer(cfg *infra.Config, logger zerolog.Logger) notify.Mailer {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return notify.NewLogMailer(logger)
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

// Gateway builds the payment gateway. A missing MIDTRANS_SERVER_KEY falls back
// to the key stored with cmd/gatewaykey. The second result is the key used to
// check notification signatures, empty unless the gateway is midtrans.
func Gateway(ctx context.Context, cfg *infra.Config, stores *Stores, logger zerolog.Logger) (payment.Gateway, string, error) {
	key := strings.TrimSpace(cfg.MidtransServerKey)
	if key == "" && cfg.PaymentGateway == "midtrans" && stores.SQL != nil {
		stored, err := credentials.NewStore(stores.SQL).MidtransServerKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load midtrans server key from store")
		}
		key = stored
	}
	gw, err := payment.Select(cfg.PaymentGateway, cfg.PaymentCallbackURL, key, cfg.MidtransProduction)
	if err != nil {
		return nil, "", err
	}
	if gw.Name() != "midtrans" {
		key = ""
	}
	return gw, key, nil
}
