package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"charity/internal/domain"
)

const staleRunningAfter = 10 * time.Minute

// CertificateJobStore implements domain.CertificateJobRepository.
type CertificateJobStore struct {
	s *Store
}

func (cs *CertificateJobStore) Enqueue(ctx context.Context, subject domain.CertificateSubject, subjectID string, at time.Time) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	for _, j := range cs.s.jobs {
		if j.Subject == subject && j.SubjectID == subjectID {
			return nil
		}
	}
	job := &domain.CertificateJob{
		ID:            uuid.NewString(),
		Subject:       subject,
		SubjectID:     subjectID,
		Status:        domain.CertificateJobQueued,
		NextAttemptAt: at,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	cs.s.jobs[job.ID] = job
	cs.s.jobOrder = append(cs.s.jobOrder, job.ID)
	return nil
}

func (cs *CertificateJobStore) Claim(ctx context.Context, now time.Time) (*domain.CertificateJob, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	var next *domain.CertificateJob
	for _, id := range cs.s.jobOrder {
		j := cs.s.jobs[id]
		due := j.Status == domain.CertificateJobQueued && !j.NextAttemptAt.After(now)
		stale := j.Status == domain.CertificateJobRunning && j.UpdatedAt.Before(now.Add(-staleRunningAfter))
		if !due && !stale {
			continue
		}
		if next == nil || j.NextAttemptAt.Before(next.NextAttemptAt) {
			next = j
		}
	}
	if next == nil {
		return nil, domain.ErrNotFound
	}
	next.Status = domain.CertificateJobRunning
	next.Attempts++
	next.UpdatedAt = now
	out := *next
	return &out, nil
}

func (cs *CertificateJobStore) MarkSucceeded(ctx context.Context, id string) error {
	return cs.update(id, func(j *domain.CertificateJob) {
		j.Status = domain.CertificateJobSucceeded
		j.LastError = ""
	})
}

func (cs *CertificateJobStore) MarkRetry(ctx context.Context, id string, next time.Time, lastErr string) error {
	return cs.update(id, func(j *domain.CertificateJob) {
		j.Status = domain.CertificateJobQueued
		j.NextAttemptAt = next
		j.LastError = lastErr
	})
}

func (cs *CertificateJobStore) MarkFailed(ctx context.Context, id string, lastErr string) error {
	return cs.update(id, func(j *domain.CertificateJob) {
		j.Status = domain.CertificateJobFailed
		j.LastError = lastErr
	})
}

func (cs *CertificateJobStore) update(id string, fn func(*domain.CertificateJob)) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	j, ok := cs.s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(j)
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Jobs returns a snapshot of every job in enqueue order.
func (cs *CertificateJobStore) Jobs() []domain.CertificateJob {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	out := make([]domain.CertificateJob, 0, len(cs.s.jobOrder))
	for _, id := range cs.s.jobOrder {
		out = append(out, *cs.s.jobs[id])
	}
	return out
}

var _ domain.CertificateJobRepository = (*CertificateJobStore)(nil)
