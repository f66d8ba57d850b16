// Package donation implements the donation lifecycle: intent creation, online
// payment initiation and confirmation, the bank transfer receipt workflow and
// admin verification, refunds and deletion.
//
// Every status change is a conditional update on the stored status. Only the
// caller whose update wins applies the project aggregate and queues the
// certificate, which makes repeated gateway callbacks harmless.
package donation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"charity/internal/domain"
	"charity/internal/events"
	"charity/internal/metrics"
	"charity/internal/payment"
	"charity/internal/storage"
	"charity/internal/validation"
)

var tracer = otel.Tracer("charity/donation")

const trackingCodeAttempts = 3

// CertificateQueue schedules certificate issuance after a transition commits.
type CertificateQueue interface {
	Enqueue(ctx context.Context, subject domain.CertificateSubject, subjectID string) error
}

// Deps lists the collaborators of the Service. Events and Metrics may be nil.
type Deps struct {
	Settings        domain.ProjectSettingsGuard
	Aggregates      domain.ProjectAggregateStore
	Donations       domain.DonationRepository
	Sequence        domain.TrackingSequence
	Gateway         payment.Gateway
	Certificates    CertificateQueue
	Receipts        storage.ObjectStore
	Events          events.Publisher
	Metrics         *metrics.Lifecycle
	Logger          zerolog.Logger
	DefaultCurrency string
}

// Service is the donation lifecycle.
type Service struct {
	settings        domain.ProjectSettingsGuard
	aggregates      domain.ProjectAggregateStore
	donations       domain.DonationRepository
	sequence        domain.TrackingSequence
	gateway         payment.Gateway
	certificates    CertificateQueue
	receipts        storage.ObjectStore
	events          events.Publisher
	metrics         *metrics.Lifecycle
	logger          zerolog.Logger
	defaultCurrency string
	now             func() time.Time
}

func NewService(deps Deps) *Service {
	currency := deps.DefaultCurrency
	if currency == "" {
		currency = "IDR"
	}
	return &Service{
		settings:        deps.Settings,
		aggregates:      deps.Aggregates,
		donations:       deps.Donations,
		sequence:        deps.Sequence,
		gateway:         deps.Gateway,
		certificates:    deps.Certificates,
		receipts:        deps.Receipts,
		events:          deps.Events,
		metrics:         deps.Metrics,
		logger:          deps.Logger.With().Str("component", "donation").Logger(),
		defaultCurrency: currency,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Intent is a donor's request to give.
type Intent struct {
	ProjectID     string               `json:"project_id" validate:"required"`
	Amount        int64                `json:"amount" validate:"gt=0"`
	Currency      string               `json:"currency"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,oneof=online bank_transfer cash"`
	Donor         DonorInput           `json:"donor"`
	Message       string               `json:"message" validate:"max=1000"`
	Locale        string               `json:"locale" validate:"omitempty,max=16"`
}

// DonorInput is the donor snapshot submitted with an intent.
type DonorInput struct {
	Name        string `json:"name" validate:"max=120"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"max=32"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// Create validates the intent against the current project settings and stores
// a pending donation with a fresh tracking code.
func (s *Service) Create(ctx context.Context, in Intent, actor *domain.Actor) (*domain.Donation, error) {
	ctx, span := tracer.Start(ctx, "donation.create")
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	project, err := s.settings.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.Donation.Enabled {
		return nil, domain.InvalidStatef("donations are disabled for this project")
	}
	if in.Amount < project.Donation.MinimumAmount {
		return nil, domain.Validationf("amount must be at least %d", project.Donation.MinimumAmount)
	}
	if in.Donor.IsAnonymous && !project.Donation.AllowAnonymous {
		return nil, domain.Validationf("this project does not accept anonymous donations")
	}
	if actor == nil && !in.Donor.IsAnonymous && in.Donor.Name == "" {
		return nil, domain.Validationf("donor name is required")
	}
	code := in.Currency
	if code == "" {
		code = s.defaultCurrency
	}
	cur, err := domain.NormalizeCurrency(code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &domain.Donation{
		ID:            uuid.NewString(),
		ProjectID:     project.ID,
		Amount:        in.Amount,
		Currency:      cur,
		PaymentMethod: in.PaymentMethod,
		Status:        domain.DonationPending,
		Donor: domain.DonorSnapshot{
			Name:        in.Donor.Name,
			Email:       in.Donor.Email,
			Phone:       in.Donor.Phone,
			IsAnonymous: in.Donor.IsAnonymous,
			Locale:      in.Locale,
		},
		Message:   in.Message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if actor != nil {
		id := actor.ID
		d.DonorID = &id
	}

	for attempt := 1; ; attempt++ {
		seq, err := s.sequence.Next(ctx, now)
		if err != nil {
			return nil, err
		}
		d.TrackingCode, err = domain.FormatTrackingCode(now, seq)
		if err != nil {
			s.logger.Error().Int64("seq", seq).Msg("daily tracking sequence exhausted")
			return nil, err
		}
		err = s.donations.Create(ctx, d)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == trackingCodeAttempts {
			return nil, err
		}
		s.logger.Warn().Str("tracking_code", d.TrackingCode).Msg("tracking code taken, drawing the next one")
	}

	s.metrics.DonationTransition(string(domain.DonationPending))
	s.logger.Info().
		Str("donation_id", d.ID).
		Str("tracking_code", d.TrackingCode).
		Str("project_id", d.ProjectID).
		Str("method", string(d.PaymentMethod)).
		Int64("amount", d.Amount).
		Msg("donation created")
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Donation, error) {
	return s.donations.GetByID(ctx, id)
}

func (s *Service) GetByTrackingCode(ctx context.Context, code string) (*domain.Donation, error) {
	if !domain.ValidTrackingCode(code) {
		return nil, domain.Validationf("malformed tracking code")
	}
	return s.donations.GetByTrackingCode(ctx, code)
}

// ListByProject returns the project's donations, newest first, optionally filtered by status.
func (s *Service) ListByProject(ctx context.Context, projectID string, status domain.DonationStatus, limit int) ([]domain.Donation, error) {
	var statuses []domain.DonationStatus
	if status != "" {
		statuses = []domain.DonationStatus{status}
	}
	return s.donations.ListByProject(ctx, projectID, statuses, limit)
}

// Donor is a public entry of the recent donors list.
type Donor struct {
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Message   string    `json:"message,omitempty"`
	DonatedAt time.Time `json:"donated_at"`
}

// RecentDonors lists successful donations for display. It is empty when the
// project hides its donors.
func (s *Service) RecentDonors(ctx context.Context, projectID string, limit int) ([]Donor, error) {
	project, err := s.settings.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.Donation.ShowDonors {
		return []Donor{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	items, err := s.donations.ListByProject(ctx, projectID, []domain.DonationStatus{domain.DonationCompleted, domain.DonationVerified}, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Donor, 0, len(items))
	for i := range items {
		d := &items[i]
		at := d.CreatedAt
		if d.CompletedAt != nil {
			at = *d.CompletedAt
		}
		out = append(out, Donor{Name: d.DisplayName(), Amount: d.Amount, Currency: d.Currency, Message: d.Message, DonatedAt: at})
	}
	return out, nil
}

// ProjectStats returns the incrementally maintained project counters.
func (s *Service) ProjectStats(ctx context.Context, projectID string) (domain.ProjectCounters, error) {
	project, err := s.settings.GetProject(ctx, projectID)
	if err != nil {
		return domain.ProjectCounters{}, err
	}
	return project.Counters, nil
}

// Delete removes a donation that never reached a financial outcome.
func (s *Service) Delete(ctx context.Context, id string) error {
	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !d.Status.Deletable() {
		return domain.InvalidStatef("only pending/failed donations may be removed")
	}
	err = s.donations.Delete(ctx, id, []domain.DonationStatus{domain.DonationPending, domain.DonationFailed})
	if errors.Is(err, domain.ErrConflict) {
		return domain.InvalidStatef("only pending/failed donations may be removed")
	}
	if err != nil {
		return err
	}
	s.logger.Info().Str("donation_id", id).Str("status", string(d.Status)).Msg("donation deleted")
	return nil
}

// MarkRefunded flags a successful donation as refunded and reverses its
// contribution to the project counters.
func (s *Service) MarkRefunded(ctx context.Context, id string, reviewer domain.Actor, notes string) (*domain.Donation, error) {
	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.CanTransition(domain.DonationRefunded) {
		return nil, domain.InvalidStatef("only completed or verified donations can be refunded")
	}
	now := s.now()
	updated, err := s.donations.Transition(ctx, domain.DonationTransition{
		ID:         id,
		From:       []domain.DonationStatus{domain.DonationCompleted, domain.DonationVerified},
		To:         domain.DonationRefunded,
		AdminNotes: notes,
		RefundedAt: &now,
		At:         now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.aggregates.ApplyDonationReversal(ctx, updated.ProjectID, updated.Amount); err != nil {
		s.aggregateFailed(err, updated)
	}
	s.metrics.DonationTransition(string(domain.DonationRefunded))
	s.publish(ctx, events.DonationRefunded, updated)
	s.logger.Info().Str("donation_id", id).Str("reviewer", reviewer.ID).Msg("donation refunded")
	return updated, nil
}

// applySuccess runs the side effects owed once per donation reaching a success status.
func (s *Service) applySuccess(ctx context.Context, d *domain.Donation, eventType string) {
	if err := s.aggregates.ApplyDonationSuccess(ctx, d.ProjectID, d.Amount); err != nil {
		s.aggregateFailed(err, d)
	}
	if s.certificates != nil {
		if err := s.certificates.Enqueue(ctx, domain.SubjectDonation, d.ID); err != nil {
			s.logger.Error().Err(err).Str("donation_id", d.ID).Msg("certificate job not queued")
		}
	}
	s.metrics.DonationTransition(string(d.Status))
	s.publish(ctx, eventType, d)
}

func (s *Service) aggregateFailed(err error, d *domain.Donation) {
	s.metrics.AggregateFailure()
	s.logger.Error().Err(err).
		Str("donation_id", d.ID).
		Str("project_id", d.ProjectID).
		Msg("project counters not updated; run reconcile")
}

func (s *Service) publish(ctx context.Context, eventType string, d *domain.Donation) {
	if s.events == nil {
		return
	}
	e := events.Event{
		Type:       eventType,
		Key:        d.ID,
		ProjectID:  d.ProjectID,
		OccurredAt: s.now(),
		Data: map[string]any{
			"tracking_code":  d.TrackingCode,
			"amount":         d.Amount,
			"currency":       d.Currency,
			"payment_method": string(d.PaymentMethod),
			"status":         string(d.Status),
		},
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Str("donation_id", d.ID).Msg("event not published")
	}
}

// authorize lets anyone act on guest donations and restricts donations made by
// an authenticated donor to that donor or an admin.
func authorize(actor *domain.Actor, d *domain.Donation) error {
	if d.DonorID == nil || actor.IsAdmin() {
		return nil
	}
	if actor == nil || actor.ID != *d.DonorID {
		return domain.ErrForbidden
	}
	return nil
}
