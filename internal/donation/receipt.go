package donation

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"charity/internal/domain"
	"charity/internal/events"
	"charity/internal/validation"
)

// MaxReceiptBytes bounds an uploaded receipt image.
const MaxReceiptBytes = 5 << 20

var receiptTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ReceiptUpload is a bank transfer proof submitted by the donor.
type ReceiptUpload struct {
	Image    []byte
	Filename string
	Note     string
}

// UploadReceipt stores the proof and attaches it, unverified, to a bank
// transfer donation that is pending or failed. The donation returns to pending.
func (s *Service) UploadReceipt(ctx context.Context, id string, actor *domain.Actor, up ReceiptUpload) (*domain.Donation, error) {
	ctx, span := tracer.Start(ctx, "donation.upload_receipt")
	defer span.End()

	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, d); err != nil {
		return nil, err
	}
	if d.PaymentMethod != domain.PaymentBankTransfer {
		return nil, domain.InvalidStatef("receipts are only accepted for bank transfer donations")
	}
	if d.Status != domain.DonationPending && d.Status != domain.DonationFailed {
		return nil, domain.InvalidStatef("donation is %s and no longer accepts receipts", d.Status)
	}
	if len(up.Image) == 0 {
		return nil, domain.Validationf("receipt image is required")
	}
	if len(up.Image) > MaxReceiptBytes {
		return nil, domain.Validationf("receipt image must be at most %d bytes", MaxReceiptBytes)
	}
	if len(up.Note) > 1000 {
		return nil, domain.Validationf("note must be at most 1000 characters")
	}
	contentType := http.DetectContentType(up.Image)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := receiptTypes[contentType]
	if !ok {
		return nil, domain.Validationf("receipt must be a JPEG, PNG, WebP image or a PDF")
	}

	key := path.Join("receipts", d.ID, uuid.NewString()+ext)
	ref, err := s.receipts.Put(ctx, key, up.Image, contentType)
	if err != nil {
		return nil, domain.Internal("store receipt", err)
	}

	now := s.now()
	updated, err := s.donations.Transition(ctx, domain.DonationTransition{
		ID:   id,
		From: []domain.DonationStatus{domain.DonationPending, domain.DonationFailed},
		To:   domain.DonationPending,
		Receipt: &domain.Receipt{
			ImageRef:   ref,
			Note:       up.Note,
			UploadedAt: now,
		},
		At: now,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("donation_id", id).Str("receipt", ref).Msg("receipt uploaded")
	return updated, nil
}

// Review is an admin decision on a donation awaiting verification.
type Review struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason" validate:"max=500"`
	Notes   string `json:"notes" validate:"max=1000"`
}

// VerifyBankTransfer approves or rejects the uploaded receipt. Approval counts
// the donation towards the project exactly once.
func (s *Service) VerifyBankTransfer(ctx context.Context, id string, reviewer domain.Actor, rv Review) (*domain.Donation, error) {
	if err := validation.Struct(rv); err != nil {
		return nil, err
	}
	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.PaymentMethod != domain.PaymentBankTransfer {
		return nil, domain.InvalidStatef("donation is not a bank transfer")
	}
	if d.Receipt == nil {
		return nil, domain.InvalidStatef("no receipt has been uploaded")
	}
	if d.Status != domain.DonationPending {
		return nil, domain.InvalidStatef("donation is %s and not awaiting verification", d.Status)
	}

	now := s.now()
	reviewerID := reviewer.ID
	receipt := *d.Receipt
	receipt.VerifiedBy = &reviewerID
	receipt.VerifiedAt = &now

	if !rv.Approve {
		if strings.TrimSpace(rv.Reason) == "" {
			return nil, domain.Validationf("a rejection reason is required")
		}
		receipt.Verified = false
		receipt.RejectionReason = rv.Reason
		rejected, err := s.donations.Transition(ctx, domain.DonationTransition{
			ID:         id,
			From:       []domain.DonationStatus{domain.DonationPending},
			To:         domain.DonationRejected,
			Receipt:    &receipt,
			AdminNotes: rv.Notes,
			VerifiedBy: &reviewerID,
			VerifiedAt: &now,
			At:         now,
		})
		if err != nil {
			return nil, err
		}
		s.metrics.DonationTransition(string(domain.DonationRejected))
		s.logger.Info().Str("donation_id", id).Str("reviewer", reviewer.ID).Msg("bank transfer rejected")
		return rejected, nil
	}

	receipt.Verified = true
	receipt.RejectionReason = ""
	verified, err := s.donations.Transition(ctx, domain.DonationTransition{
		ID:          id,
		From:        []domain.DonationStatus{domain.DonationPending},
		To:          domain.DonationVerified,
		Receipt:     &receipt,
		AdminNotes:  rv.Notes,
		VerifiedBy:  &reviewerID,
		VerifiedAt:  &now,
		CompletedAt: &now,
		At:          now,
	})
	if err != nil {
		return nil, err
	}
	s.applySuccess(ctx, verified, events.DonationVerified)
	s.logger.Info().Str("donation_id", id).Str("reviewer", reviewer.ID).Msg("bank transfer verified")
	return verified, nil
}

// VerifyCash records an admin's confirmation that a cash donation was received.
func (s *Service) VerifyCash(ctx context.Context, id string, reviewer domain.Actor, notes string) (*domain.Donation, error) {
	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.PaymentMethod != domain.PaymentCash {
		return nil, domain.InvalidStatef("donation is not a cash donation")
	}
	if d.Status != domain.DonationPending {
		return nil, domain.InvalidStatef("donation is %s and not awaiting verification", d.Status)
	}
	now := s.now()
	reviewerID := reviewer.ID
	verified, err := s.donations.Transition(ctx, domain.DonationTransition{
		ID:          id,
		From:        []domain.DonationStatus{domain.DonationPending},
		To:          domain.DonationVerified,
		AdminNotes:  notes,
		VerifiedBy:  &reviewerID,
		VerifiedAt:  &now,
		CompletedAt: &now,
		At:          now,
	})
	if err != nil {
		return nil, err
	}
	s.applySuccess(ctx, verified, events.DonationVerified)
	s.logger.Info().Str("donation_id", id).Str("reviewer", reviewer.ID).Msg("cash donation verified")
	return verified, nil
}
