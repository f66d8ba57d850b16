package handlers

import (
	"time"

	"charity/internal/domain"
)

// publicDonation is what anyone holding a tracking code may see.
type publicDonation struct {
	TrackingCode  string                `json:"tracking_code"`
	ProjectID     string                `json:"project_id"`
	Amount        int64                 `json:"amount"`
	Currency      string                `json:"currency"`
	PaymentMethod domain.PaymentMethod  `json:"payment_method"`
	Status        domain.DonationStatus `json:"status"`
	DonorName     string                `json:"donor_name"`
	Message       string                `json:"message,omitempty"`
	Certificate   domain.Certificate    `json:"certificate"`
	CreatedAt     time.Time             `json:"created_at"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
}

type donationView struct {
	ID string `json:"id"`
	publicDonation
	Gateway         string               `json:"gateway,omitempty"`
	TransactionID   string               `json:"transaction_id,omitempty"`
	ReferenceID     string               `json:"reference_id,omitempty"`
	PaymentAttempts int                  `json:"payment_attempts"`
	DonorID         *string              `json:"donor_id,omitempty"`
	Donor           domain.DonorSnapshot `json:"donor"`
	Receipt         *domain.Receipt      `json:"receipt,omitempty"`
	AdminNotes      string               `json:"admin_notes,omitempty"`
	VerifiedBy      *string              `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time           `json:"verified_at,omitempty"`
	RefundedAt      *time.Time           `json:"refunded_at,omitempty"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func toPublicDonation(d *domain.Donation) publicDonation {
	return publicDonation{
		TrackingCode:  d.TrackingCode,
		ProjectID:     d.ProjectID,
		Amount:        d.Amount,
		Currency:      d.Currency,
		PaymentMethod: d.PaymentMethod,
		Status:        d.Status,
		DonorName:     d.DisplayName(),
		Message:       d.Message,
		Certificate:   d.Certificate,
		CreatedAt:     d.CreatedAt,
		CompletedAt:   d.CompletedAt,
	}
}

func toDonationView(d *domain.Donation) donationView {
	return donationView{
		ID:              d.ID,
		publicDonation:  toPublicDonation(d),
		Gateway:         d.Gateway,
		TransactionID:   d.TransactionID,
		ReferenceID:     d.ReferenceID,
		PaymentAttempts: d.PaymentAttempts,
		DonorID:         d.DonorID,
		Donor:           d.Donor,
		Receipt:         d.Receipt,
		AdminNotes:      d.AdminNotes,
		VerifiedBy:      d.VerifiedBy,
		VerifiedAt:      d.VerifiedAt,
		RefundedAt:      d.RefundedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type registrationView struct {
	ID                string                 `json:"id"`
	ProjectID         string                 `json:"project_id"`
	VolunteerID       string                 `json:"volunteer_id"`
	Declaration       domain.Declaration     `json:"declaration"`
	Status            domain.VolunteerStatus `json:"status"`
	ReviewedBy        *string                `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time             `json:"reviewed_at,omitempty"`
	ReviewNotes       string                 `json:"review_notes,omitempty"`
	RejectionReason   string                 `json:"rejection_reason,omitempty"`
	HoursContributed  int                    `json:"hours_contributed"`
	TasksCompleted    int                    `json:"tasks_completed"`
	ContributionScore int                    `json:"contribution_score"`
	LastActivityAt    *time.Time             `json:"last_activity_at,omitempty"`
	Certificate       domain.Certificate     `json:"certificate"`
	ApprovedAt        *time.Time             `json:"approved_at,omitempty"`
	ActivatedAt       *time.Time             `json:"activated_at,omitempty"`
	CompletedAt       *time.Time             `json:"completed_at,omitempty"`
	WithdrawnAt       *time.Time             `json:"withdrawn_at,omitempty"`
	SuspendedAt       *time.Time             `json:"suspended_at,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func toRegistrationView(r *domain.Registration) registrationView {
	return registrationView{
		ID:                r.ID,
		ProjectID:         r.ProjectID,
		VolunteerID:       r.VolunteerID,
		Declaration:       r.Declaration,
		Status:            r.Status,
		ReviewedBy:        r.ReviewedBy,
		ReviewedAt:        r.ReviewedAt,
		ReviewNotes:       r.ReviewNotes,
		RejectionReason:   r.RejectionReason,
		HoursContributed:  r.HoursContributed,
		TasksCompleted:    r.TasksCompleted,
		ContributionScore: r.ContributionScore,
		LastActivityAt:    r.LastActivityAt,
		Certificate:       r.Certificate,
		ApprovedAt:        r.ApprovedAt,
		ActivatedAt:       r.ActivatedAt,
		CompletedAt:       r.CompletedAt,
		WithdrawnAt:       r.WithdrawnAt,
		SuspendedAt:       r.SuspendedAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
