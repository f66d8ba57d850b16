package donation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"charity/internal/domain"
	"charity/internal/events"
	"charity/internal/payment"
)

// errNotVerified is the only gateway failure reason shown to callers.
var errNotVerified = fmt.Errorf("%w: payment could not be verified", domain.ErrGateway)

// InitiatePayment asks the gateway for a new authority for an online donation.
// A failed donation may be retried; every attempt replaces the stored authority.
func (s *Service) InitiatePayment(ctx context.Context, id string, actor *domain.Actor) (*domain.Donation, payment.Initiation, error) {
	ctx, span := tracer.Start(ctx, "donation.initiate_payment")
	defer span.End()
	span.SetAttributes(attribute.String("donation.id", id))

	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, payment.Initiation{}, err
	}
	if err := authorize(actor, d); err != nil {
		return nil, payment.Initiation{}, err
	}
	if d.PaymentMethod != domain.PaymentOnline {
		return nil, payment.Initiation{}, domain.InvalidStatef("only online donations can be paid through the gateway")
	}
	if d.Status != domain.DonationPending && d.Status != domain.DonationFailed {
		return nil, payment.Initiation{}, domain.InvalidStatef("donation is %s and cannot be paid", d.Status)
	}
	project, err := s.settings.GetProject(ctx, d.ProjectID)
	if err != nil {
		return nil, payment.Initiation{}, err
	}

	init, err := s.gateway.Initiate(ctx, payment.Request{
		Amount:      d.Amount,
		Currency:    d.Currency,
		Description: "Donation to " + project.Title,
		Reference:   d.TrackingCode,
		Contact:     payment.Contact{Name: d.DisplayName(), Email: d.Donor.Email, Phone: d.Donor.Phone},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("donation_id", id).Str("gateway", s.gateway.Name()).Msg("payment initiation failed")
		return nil, payment.Initiation{}, fmt.Errorf("%w: payment could not be initiated", domain.ErrGateway)
	}

	updated, err := s.donations.Transition(ctx, domain.DonationTransition{
		ID:           id,
		From:         []domain.DonationStatus{domain.DonationPending, domain.DonationFailed},
		To:           domain.DonationPending,
		Gateway:      s.gateway.Name(),
		Authority:    init.Authority,
		BumpAttempts: true,
		At:           s.now(),
	})
	if err != nil {
		return nil, payment.Initiation{}, err
	}
	s.logger.Info().
		Str("donation_id", id).
		Str("gateway", s.gateway.Name()).
		Int("attempt", updated.PaymentAttempts).
		Msg("payment initiated")
	return updated, init, nil
}

// Callback is a gateway callback for one authority. TrackingCode is optional;
// when present it must belong to the donation holding the authority.
type Callback struct {
	Authority     string
	Status        payment.CallbackStatus
	TrackingCode  string
	TransactionID string
}

// ConfirmPayment applies a gateway callback. It is safe to call any number of
// times: once the donation left pending the stored result is returned.
func (s *Service) ConfirmPayment(ctx context.Context, cb Callback) (*domain.Donation, error) {
	ctx, span := tracer.Start(ctx, "donation.confirm_payment")
	defer span.End()
	span.SetAttributes(attribute.String("payment.authority", cb.Authority), attribute.String("payment.status", string(cb.Status)))

	if cb.Authority == "" {
		return nil, domain.Validationf("payment token is required")
	}
	d, err := s.lookupCallback(ctx, cb)
	if err != nil {
		s.metrics.PaymentCallback("rejected")
		return nil, err
	}
	log := s.logger.With().Str("donation_id", d.ID).Str("authority", cb.Authority).Logger()

	if cb.Status == payment.CallbackPending {
		s.metrics.PaymentCallback("pending")
		return d, nil
	}
	if d.Status != domain.DonationPending {
		if cb.Status == payment.CallbackSuccess && !d.Status.IsSuccess() && d.Status != domain.DonationRefunded {
			log.Warn().Str("status", string(d.Status)).Msg("success callback for a donation that already ended")
		}
		s.metrics.PaymentCallback("duplicate")
		return d, nil
	}

	if cb.Status == payment.CallbackFailed {
		failed, err := s.fail(ctx, d, cb.Authority, cb.TransactionID)
		if err != nil {
			return nil, err
		}
		s.metrics.PaymentCallback("failed")
		return failed, nil
	}

	ref, verifyErr := s.gateway.Verify(ctx, cb.Authority, d.Amount)
	if verifyErr != nil {
		log.Warn().Err(verifyErr).Msg("payment verification failed")
		current, err := s.fail(ctx, d, cb.Authority, cb.TransactionID)
		if err != nil {
			return nil, err
		}
		if current.Status.IsSuccess() {
			s.metrics.PaymentCallback("duplicate")
			return current, nil
		}
		s.metrics.PaymentCallback("failed")
		return nil, errNotVerified
	}

	now := s.now()
	txID := cb.TransactionID
	if txID == "" {
		txID = ref
	}
	completed, err := s.donations.Transition(ctx, domain.DonationTransition{
		ID:            d.ID,
		From:          []domain.DonationStatus{domain.DonationPending},
		IfAuthority:   cb.Authority,
		To:            domain.DonationCompleted,
		ReferenceID:   ref,
		TransactionID: txID,
		CompletedAt:   &now,
		At:            now,
	})
	if errors.Is(err, domain.ErrConflict) {
		current, err := s.settled(ctx, d.ID, cb.Authority)
		if err != nil {
			s.metrics.PaymentCallback("rejected")
			return nil, err
		}
		s.metrics.PaymentCallback("duplicate")
		return current, nil
	}
	if err != nil {
		return nil, err
	}

	s.applySuccess(ctx, completed, events.DonationCompleted)
	s.metrics.PaymentCallback("completed")
	log.Info().Str("reference_id", ref).Int64("amount", completed.Amount).Msg("online donation completed")
	return completed, nil
}

func (s *Service) lookupCallback(ctx context.Context, cb Callback) (*domain.Donation, error) {
	if cb.TrackingCode == "" {
		d, err := s.donations.GetByAuthority(ctx, cb.Authority)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no donation matches this payment token", domain.ErrNotFound)
		}
		return d, err
	}
	d, err := s.donations.GetByTrackingCode(ctx, cb.TrackingCode)
	if err != nil {
		return nil, err
	}
	if d.Authority != cb.Authority {
		return nil, fmt.Errorf("%w: payment token does not belong to donation %s", domain.ErrTokenMismatch, cb.TrackingCode)
	}
	return d, nil
}

// fail moves a pending donation that still holds authority to failed. Losing
// the race returns the winner's state.
func (s *Service) fail(ctx context.Context, d *domain.Donation, authority, transactionID string) (*domain.Donation, error) {
	failed, err := s.donations.Transition(ctx, domain.DonationTransition{
		ID:            d.ID,
		From:          []domain.DonationStatus{domain.DonationPending},
		IfAuthority:   authority,
		To:            domain.DonationFailed,
		TransactionID: transactionID,
		At:            s.now(),
	})
	if errors.Is(err, domain.ErrConflict) {
		return s.settled(ctx, d.ID, authority)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.DonationTransition(string(domain.DonationFailed))
	return failed, nil
}

// settled re-reads a donation after a callback lost its conditional update. A
// donation that is still pending under a newer authority was re-initiated, so
// the callback's token no longer applies.
func (s *Service) settled(ctx context.Context, id, authority string) (*domain.Donation, error) {
	current, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.DonationPending && current.Authority != authority {
		return nil, fmt.Errorf("%w: payment token was replaced by a newer attempt", domain.ErrTokenMismatch)
	}
	return current, nil
}
