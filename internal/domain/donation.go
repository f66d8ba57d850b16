package domain

import "time"

// DonationStatus enumerates the donation lifecycle states.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationVerified  DonationStatus = "verified"
	DonationFailed    DonationStatus = "failed"
	DonationRejected  DonationStatus = "rejected"
	DonationRefunded  DonationStatus = "refunded"
)

// IsSuccess reports whether the status counts towards the project aggregate.
func (s DonationStatus) IsSuccess() bool {
	return s == DonationCompleted || s == DonationVerified
}

// IsTerminal reports whether no further payment transition may leave the status.
func (s DonationStatus) IsTerminal() bool {
	switch s {
	case DonationCompleted, DonationVerified, DonationRejected, DonationRefunded:
		return true
	}
	return false
}

// Deletable reports whether a donation in this status may be removed.
func (s DonationStatus) Deletable() bool {
	return s == DonationPending || s == DonationFailed
}

var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationPending:   {DonationCompleted, DonationVerified, DonationFailed, DonationRejected},
	DonationFailed:    {DonationPending},
	DonationCompleted: {DonationRefunded},
	DonationVerified:  {DonationRefunded},
}

// CanTransition reports whether from -> to is an edge of the donation state machine.
func (s DonationStatus) CanTransition(to DonationStatus) bool {
	for _, next := range donationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentMethod enumerates the accepted donation channels.
type PaymentMethod string

const (
	PaymentOnline       PaymentMethod = "online"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCash         PaymentMethod = "cash"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentOnline, PaymentBankTransfer, PaymentCash:
		return true
	}
	return false
}

// DonorSnapshot describes a donor that is not, or not only, an authenticated identity.
type DonorSnapshot struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	IsAnonymous bool   `json:"is_anonymous"`
	// Locale is the language the donor browsed in; certificates use it.
	Locale string `json:"locale,omitempty"`
}

// Receipt is the bank transfer proof attached to a donation.
type Receipt struct {
	ImageRef        string     `json:"image_ref"`
	Note            string     `json:"note,omitempty"`
	UploadedAt      time.Time  `json:"uploaded_at"`
	Verified        bool       `json:"verified"`
	VerifiedBy      *string    `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// Certificate holds the issued completion artifact. URL and Generated are written together.
type Certificate struct {
	URL         string     `json:"url,omitempty"`
	Generated   bool       `json:"generated"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

// Donation represents a pledge of money to a project.
type Donation struct {
	ID              string
	TrackingCode    string
	ProjectID       string
	Amount          int64
	Currency        string
	PaymentMethod   PaymentMethod
	Status          DonationStatus
	Gateway         string
	Authority       string
	TransactionID   string
	ReferenceID     string
	PaymentAttempts int
	DonorID         *string
	Donor           DonorSnapshot
	Message         string
	Receipt         *Receipt
	Certificate     Certificate
	AdminNotes      string
	VerifiedBy      *string
	VerifiedAt      *time.Time
	CompletedAt     *time.Time
	RefundedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DisplayName returns the name shown on public donor lists and certificates.
func (d *Donation) DisplayName() string {
	if d.Donor.IsAnonymous || d.Donor.Name == "" {
		return "Anonymous"
	}
	return d.Donor.Name
}

// DonationTransition describes a conditional status change. The update only applies
// when the stored status is one of From and, if IfAuthority is set, the stored
// authority equals it. Zero values leave the column untouched.
type DonationTransition struct {
	ID            string
	From          []DonationStatus
	To            DonationStatus
	IfAuthority   string
	Gateway       string
	Authority     string
	TransactionID string
	ReferenceID   string
	BumpAttempts  bool
	Receipt       *Receipt
	AdminNotes    string
	VerifiedBy    *string
	VerifiedAt    *time.Time
	CompletedAt   *time.Time
	RefundedAt    *time.Time
	At            time.Time
}
