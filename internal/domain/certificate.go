package domain

import "time"

// CertificateSubject names the entity a certificate is issued for.
type CertificateSubject string

const (
	SubjectDonation  CertificateSubject = "donation"
	SubjectVolunteer CertificateSubject = "volunteer"
)

// CertificateJobStatus enumerates queue states.
type CertificateJobStatus string

const (
	CertificateJobQueued    CertificateJobStatus = "queued"
	CertificateJobRunning   CertificateJobStatus = "running"
	CertificateJobSucceeded CertificateJobStatus = "succeeded"
	CertificateJobFailed    CertificateJobStatus = "failed"
)

// CertificateJob is one queued issuance. A subject has at most one job.
type CertificateJob struct {
	ID            string
	Subject       CertificateSubject
	SubjectID     string
	Status        CertificateJobStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
