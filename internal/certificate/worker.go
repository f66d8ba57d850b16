package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"charity/internal/domain"
	"charity/internal/metrics"
	"charity/internal/notify"
)

var tracer = otel.Tracer("charity/certificate")

// WorkerConfig tunes polling and the retry schedule.
type WorkerConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
}

// Worker drains the certificate job queue.
type Worker struct {
	jobs       domain.CertificateJobRepository
	donations  domain.DonationRepository
	volunteers domain.VolunteerRepository
	projects   domain.ProjectSettingsGuard
	issuer     Issuer
	mailer     notify.Mailer
	metrics    *metrics.Lifecycle
	logger     zerolog.Logger
	cfg        WorkerConfig
	tracer     trace.Tracer
	now        func() time.Time
}

// WorkerDeps lists the collaborators of a Worker. Mailer and Metrics may be nil.
type WorkerDeps struct {
	Jobs       domain.CertificateJobRepository
	Donations  domain.DonationRepository
	Volunteers domain.VolunteerRepository
	Projects   domain.ProjectSettingsGuard
	Issuer     Issuer
	Mailer     notify.Mailer
	Metrics    *metrics.Lifecycle
	Logger     zerolog.Logger
}

func NewWorker(deps WorkerDeps, cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 30 * time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Minute
	}
	return &Worker{
		jobs:       deps.Jobs,
		donations:  deps.Donations,
		volunteers: deps.Volunteers,
		projects:   deps.Projects,
		issuer:     deps.Issuer,
		mailer:     deps.Mailer,
		metrics:    deps.Metrics,
		logger:     deps.Logger.With().Str("component", "certificate_worker").Logger(),
		cfg:        cfg,
		tracer:     tracer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Dur("poll_interval", w.cfg.PollInterval).Msg("certificate worker started")
	for {
		worked, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("claim certificate job")
		}
		if worked {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// RunOnce claims and processes at most one job. It reports whether a job was claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	job, err := w.jobs.Claim(ctx, w.now())
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	w.handle(ctx, job)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, job *domain.CertificateJob) {
	ctx, span := w.tracer.Start(ctx, "certificate.job")
	defer span.End()
	span.SetAttributes(
		attribute.String("certificate.subject", string(job.Subject)),
		attribute.String("certificate.subject_id", job.SubjectID),
		attribute.Int("certificate.attempt", job.Attempts),
	)

	log := w.logger.With().
		Str("job_id", job.ID).
		Str("subject", string(job.Subject)).
		Str("subject_id", job.SubjectID).
		Int("attempt", job.Attempts).
		Logger()

	outcome, err := w.issue(ctx, job)
	if err == nil {
		span.SetAttributes(attribute.String("certificate.outcome", outcome))
		if markErr := w.jobs.MarkSucceeded(ctx, job.ID); markErr != nil {
			log.Error().Err(markErr).Msg("mark certificate job succeeded")
		}
		w.metrics.CertificateJob(outcome)
		log.Info().Str("outcome", outcome).Msg("certificate job done")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "issue certificate")

	if job.Attempts >= w.cfg.MaxAttempts {
		if markErr := w.jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Msg("mark certificate job failed")
		}
		w.metrics.CertificateJob("failed")
		log.Error().Err(err).Msg("certificate job exhausted its attempts")
		return
	}

	next := w.now().Add(w.retryDelay(job.Attempts))
	if markErr := w.jobs.MarkRetry(ctx, job.ID, next, err.Error()); markErr != nil {
		log.Error().Err(markErr).Msg("reschedule certificate job")
	}
	w.metrics.CertificateJob("retry")
	log.Warn().Err(err).Time("next_attempt_at", next).Msg("certificate job rescheduled")
}

// retryDelay is the exponential delay after the given attempt number.
func (w *Worker) retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.BackoffBase
	b.MaxInterval = w.cfg.BackoffMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

func (w *Worker) issue(ctx context.Context, job *domain.CertificateJob) (string, error) {
	switch job.Subject {
	case domain.SubjectDonation:
		return w.issueDonation(ctx, job.SubjectID)
	case domain.SubjectVolunteer:
		return w.issueVolunteer(ctx, job.SubjectID)
	default:
		return "", fmt.Errorf("unknown certificate subject %q", job.Subject)
	}
}

func (w *Worker) issueDonation(ctx context.Context, id string) (string, error) {
	d, err := w.donations.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return "skipped", nil
	}
	if err != nil {
		return "", err
	}
	if d.Certificate.Generated || !d.Status.IsSuccess() {
		return "skipped", nil
	}
	project, err := w.projects.GetProject(ctx, d.ProjectID)
	if err != nil {
		return "", err
	}
	url, err := w.issuer.IssueDonationCertificate(ctx, *d, *project)
	if err != nil {
		return "", err
	}
	written, err := w.donations.SetCertificate(ctx, d.ID, url, w.now())
	if err != nil {
		return "", err
	}
	if !written {
		return "skipped", nil
	}
	w.notifyDonor(ctx, d, project, url)
	return "succeeded", nil
}

func (w *Worker) issueVolunteer(ctx context.Context, id string) (string, error) {
	reg, err := w.volunteers.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return "skipped", nil
	}
	if err != nil {
		return "", err
	}
	if reg.Certificate.Generated || reg.Status != domain.VolunteerCompleted {
		return "skipped", nil
	}
	project, err := w.projects.GetProject(ctx, reg.ProjectID)
	if err != nil {
		return "", err
	}
	url, err := w.issuer.IssueVolunteerCertificate(ctx, *reg, *project)
	if err != nil {
		return "", err
	}
	written, err := w.volunteers.SetCertificate(ctx, reg.ID, url, w.now())
	if err != nil {
		return "", err
	}
	if !written {
		return "skipped", nil
	}
	return "succeeded", nil
}

func (w *Worker) notifyDonor(ctx context.Context, d *domain.Donation, p *domain.Project, url string) {
	if w.mailer == nil || d.Donor.Email == "" {
		return
	}
	subject, body, err := notify.CertificateReady(d.DisplayName(), p.Title, url)
	if err == nil {
		err = w.mailer.Send(ctx, d.Donor.Email, subject, body)
	}
	if err != nil {
		w.logger.Warn().Err(err).Str("donation_id", d.ID).Msg("certificate email not sent")
	}
}
