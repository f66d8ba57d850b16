package domain

import (
	"context"
	"time"
)

// ProjectSettingsGuard reads project configuration. Implementations must not cache.
type ProjectSettingsGuard interface {
	GetProject(ctx context.Context, id string) (*Project, error)
}

// ProjectAggregateStore owns the project counters. Every method is a single atomic
// update; deduplication is the caller's job.
type ProjectAggregateStore interface {
	ApplyDonationSuccess(ctx context.Context, projectID string, amount int64) error
	ApplyDonationReversal(ctx context.Context, projectID string, amount int64) error
	ApplyVolunteerApproval(ctx context.Context, projectID string, fromPending bool) error
	ApplyVolunteerWithdrawal(ctx context.Context, projectID string) error
	ApplyPendingDelta(ctx context.Context, projectID string, delta int) error
}

// ProjectRepository combines the guard and aggregate store with the
// re-derivation queries used by reconciliation.
type ProjectRepository interface {
	ProjectSettingsGuard
	ProjectAggregateStore
	ListIDs(ctx context.Context) ([]string, error)
	DeriveCounters(ctx context.Context, projectID string) (ProjectCounters, error)
	OverwriteCounters(ctx context.Context, projectID string, counters ProjectCounters) error
}

// DonationRepository persists donations.
type DonationRepository interface {
	Create(ctx context.Context, d *Donation) error
	GetByID(ctx context.Context, id string) (*Donation, error)
	GetByTrackingCode(ctx context.Context, code string) (*Donation, error)
	GetByAuthority(ctx context.Context, authority string) (*Donation, error)
	// Transition applies t only if the stored status is in t.From. It returns
	// ErrConflict when the row exists but its status did not match.
	Transition(ctx context.Context, t DonationTransition) (*Donation, error)
	// SetCertificate writes the certificate once; it reports false when one was already stored.
	SetCertificate(ctx context.Context, id, url string, at time.Time) (bool, error)
	// Delete removes the donation only if its status is in allowed.
	Delete(ctx context.Context, id string, allowed []DonationStatus) error
	ListByProject(ctx context.Context, projectID string, statuses []DonationStatus, limit int) ([]Donation, error)
}

// VolunteerRepository persists registrations.
type VolunteerRepository interface {
	// Create fails with ErrConflict when the (project, volunteer) pair exists.
	Create(ctx context.Context, r *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	// PairExists reports whether the volunteer already has a registration for the project.
	PairExists(ctx context.Context, projectID, volunteerID string) (bool, error)
	Transition(ctx context.Context, t VolunteerTransition) (*Registration, error)
	// RecordActivity stores hours and tasks only if neither decreases and the
	// status is one of allowed.
	RecordActivity(ctx context.Context, id string, hours, tasks int, allowed []VolunteerStatus, at time.Time) (*Registration, error)
	SetCertificate(ctx context.Context, id, url string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string, allowed []VolunteerStatus) error
	CountByStatus(ctx context.Context, projectID string, statuses []VolunteerStatus) (int, error)
	ListByProject(ctx context.Context, projectID string, statuses []VolunteerStatus) ([]Registration, error)
}

// TrackingSequence hands out increasing per-day numbers for tracking codes.
type TrackingSequence interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}

// CertificateJobRepository is the durable certificate issuance queue.
type CertificateJobRepository interface {
	// Enqueue is a no-op when a job for the subject already exists.
	Enqueue(ctx context.Context, subject CertificateSubject, subjectID string, at time.Time) error
	// Claim returns ErrNotFound when no job is due.
	Claim(ctx context.Context, now time.Time) (*CertificateJob, error)
	MarkSucceeded(ctx context.Context, id string) error
	MarkRetry(ctx context.Context, id string, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id string, lastErr string) error
}
