package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"charity/internal/domain"
	"charity/internal/infra"
	"charity/internal/sqlinline"
)

// CertificateJobRepositoryPG implements domain.CertificateJobRepository on the
// certificate_jobs table, claiming rows with FOR UPDATE SKIP LOCKED.
type CertificateJobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewCertificateJobRepository creates a new certificate job repo.
func NewCertificateJobRepository(sql infra.SQLExecutor) *CertificateJobRepositoryPG {
	return &CertificateJobRepositoryPG{sql: sql}
}

func (r *CertificateJobRepositoryPG) Enqueue(ctx context.Context, subject domain.CertificateSubject, subjectID string, at time.Time) error {
	_, err := r.sql.Exec(ctx, sqlinline.QEnqueueCertificateJob, uuid.NewString(), string(subject), subjectID, at)
	return mapErr("enqueue certificate job", err)
}

func (r *CertificateJobRepositoryPG) Claim(ctx context.Context, now time.Time) (*domain.CertificateJob, error) {
	var (
		j       domain.CertificateJob
		subject string
		status  string
	)
	err := r.sql.QueryRow(ctx, sqlinline.QClaimCertificateJob, now).Scan(
		&j.ID,
		&subject,
		&j.SubjectID,
		&status,
		&j.Attempts,
		&j.NextAttemptAt,
		&j.LastError,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr("claim certificate job", err)
	}
	j.Subject = domain.CertificateSubject(subject)
	j.Status = domain.CertificateJobStatus(status)
	return &j, nil
}

func (r *CertificateJobRepositoryPG) MarkSucceeded(ctx context.Context, id string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkCertificateJobSucceeded, id)
	return mapErr("mark certificate job succeeded", err)
}

func (r *CertificateJobRepositoryPG) MarkRetry(ctx context.Context, id string, next time.Time, lastErr string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkCertificateJobRetry, id, next, lastErr)
	return mapErr("mark certificate job retry", err)
}

func (r *CertificateJobRepositoryPG) MarkFailed(ctx context.Context, id string, lastErr string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkCertificateJobFailed, id, lastErr)
	return mapErr("mark certificate job failed", err)
}

var _ domain.CertificateJobRepository = (*CertificateJobRepositoryPG)(nil)
