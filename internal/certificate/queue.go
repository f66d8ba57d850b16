// Package certificate issues completion certificates for donations and
// volunteer registrations. Lifecycles only enqueue jobs; a Worker renders and
// stores the artifact after the transition has committed.
package certificate

import (
	"context"
	"time"

	"charity/internal/domain"
)

// Queue enqueues certificate jobs. Enqueueing twice for one subject is a no-op.
type Queue struct {
	jobs domain.CertificateJobRepository
	now  func() time.Time
}

func NewQueue(jobs domain.CertificateJobRepository) *Queue {
	return &Queue{jobs: jobs, now: func() time.Time { return time.Now().UTC() }}
}

func (q *Queue) Enqueue(ctx context.Context, subject domain.CertificateSubject, subjectID string) error {
	return q.jobs.Enqueue(ctx, subject, subjectID, q.now())
}
