package volunteer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"charity/internal/adapter/memstore"
	"charity/internal/certificate"
	"charity/internal/domain"
	"charity/internal/metrics"
)

type VolunteerSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memstore.Store
	metrics *metrics.Lifecycle
	svc     *Service
	admin   domain.Actor
}

func TestVolunteerSuite(t *testing.T) {
	suite.Run(t, new(VolunteerSuite))
}

func (s *VolunteerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memstore.New()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.admin = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	s.seed(domain.VolunteerSettings{Enabled: true, MaxVolunteers: 2})
	s.svc = NewService(Deps{
		Settings:      s.store.Projects(),
		Aggregates:    s.store.Projects(),
		Registrations: s.store.Volunteers(),
		Certificates:  certificate.NewQueue(s.store.CertificateJobs()),
		Metrics:       s.metrics,
		Logger:        zerolog.Nop(),
	})
}

func (s *VolunteerSuite) seed(settings domain.VolunteerSettings) {
	s.store.Projects().Seed(domain.Project{ID: "p1", Title: "Beach Cleanup", Volunteer: settings})
}

func (s *VolunteerSuite) counters() domain.ProjectCounters {
	p, err := s.store.Projects().GetProject(s.ctx, "p1")
	s.Require().NoError(err)
	return p.Counters
}

func user(id string) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RoleUser}
}

func declaration() domain.Declaration {
	return domain.Declaration{
		Skills:       []string{"first aid"},
		HoursPerWeek: 6,
		Availability: domain.Availability{Days: []string{"saturday"}, TimeSlots: []string{"morning"}},
	}
}

func (s *VolunteerSuite) register(volunteerID string) *domain.Registration {
	reg, err := s.svc.Register(s.ctx, "p1", user(volunteerID), declaration())
	s.Require().NoError(err)
	return reg
}

func (s *VolunteerSuite) approved(volunteerID string) *domain.Registration {
	reg := s.register(volunteerID)
	reg, err := s.svc.Review(s.ctx, reg.ID, s.admin, Decision{Approve: true})
	s.Require().NoError(err)
	return reg
}

func intp(v int) *int { return &v }

func (s *VolunteerSuite) TestRegisterPendingCountsOnce() {
	reg := s.register("v1")
	s.Equal(domain.VolunteerPending, reg.Status)
	s.Equal(domain.ProjectCounters{PendingVolunteers: 1}, s.counters())

	_, err := s.svc.Register(s.ctx, "p1", user("v1"), declaration())
	s.Require().ErrorIs(err, domain.ErrConflict)
	s.Equal(1, s.counters().PendingVolunteers, "a duplicate never increments again")

	approved, err := s.svc.Review(s.ctx, reg.ID, s.admin, Decision{Approve: true, Notes: "welcome"})
	s.Require().NoError(err)
	s.Equal(domain.VolunteerApproved, approved.Status)
	s.NotNil(approved.ApprovedAt)
	s.Equal("admin-1", *approved.ReviewedBy)
	s.Equal(domain.ProjectCounters{VolunteerCount: 1}, s.counters())

	_, err = s.svc.Review(s.ctx, reg.ID, s.admin, Decision{Approve: false})
	s.Require().ErrorIs(err, domain.ErrInvalidState)
	s.Equal(domain.ProjectCounters{VolunteerCount: 1}, s.counters())
}

func (s *VolunteerSuite) TestRejectOnlyTouchesPending() {
	reg := s.register("v1")
	rejected, err := s.svc.Review(s.ctx, reg.ID, s.admin, Decision{Approve: false, Reason: "no overlap in schedule"})
	s.Require().NoError(err)
	s.Equal(domain.VolunteerRejected, rejected.Status)
	s.Equal("no overlap in schedule", rejected.RejectionReason)
	s.Equal(domain.ProjectCounters{}, s.counters())

	s.Require().NoError(s.svc.Delete(s.ctx, reg.ID))
	s.Equal(domain.ProjectCounters{}, s.counters())
}

func (s *VolunteerSuite) TestAutoApprove() {
	s.seed(domain.VolunteerSettings{Enabled: true, AutoApprove: true})
	reg := s.register("v1")
	s.Equal(domain.VolunteerApproved, reg.Status)
	s.NotNil(reg.ApprovedAt)
	s.Equal(domain.ProjectCounters{VolunteerCount: 1}, s.counters())
}

func (s *VolunteerSuite) TestRegisterValidation() {
	_, err := s.svc.Register(s.ctx, "p1", user("v1"), domain.Declaration{HoursPerWeek: 4})
	s.Require().ErrorIs(err, domain.ErrValidation)
	s.Contains(err.Error(), "skills")

	bad := declaration()
	bad.Availability.Days = []string{"someday"}
	_, err = s.svc.Register(s.ctx, "p1", user("v1"), bad)
	s.Require().ErrorIs(err, domain.ErrValidation)

	_, err = s.svc.Register(s.ctx, "missing", user("v1"), declaration())
	s.Require().ErrorIs(err, domain.ErrNotFound)

	s.seed(domain.VolunteerSettings{Enabled: false})
	_, err = s.svc.Register(s.ctx, "p1", user("v1"), declaration())
	s.Require().ErrorIs(err, domain.ErrInvalidState)
	s.Equal(domain.ProjectCounters{}, s.counters())
}

func (s *VolunteerSuite) TestCapacity() {
	s.approved("v1")
	s.approved("v2")

	_, err := s.svc.Register(s.ctx, "p1", user("v3"), declaration())
	s.Require().ErrorIs(err, domain.ErrCapacityReached)
	s.Require().ErrorIs(err, domain.ErrInvalidState)

	s.seed(domain.VolunteerSettings{Enabled: true, MaxVolunteers: 3})
	pending := s.register("v3")
	s.seed(domain.VolunteerSettings{Enabled: true, MaxVolunteers: 2})
	_, err = s.svc.Review(s.ctx, pending.ID, s.admin, Decision{Approve: true})
	s.Require().ErrorIs(err, domain.ErrCapacityReached)
	s.Equal(domain.ProjectCounters{VolunteerCount: 2, PendingVolunteers: 1}, s.counters())
}

func (s *VolunteerSuite) TestDuplicatePairConflictsBeforeGates() {
	s.approved("v1")
	s.approved("v2")

	_, err := s.svc.Register(s.ctx, "p1", user("v1"), declaration())
	s.Require().ErrorIs(err, domain.ErrConflict)
	s.NotErrorIs(err, domain.ErrCapacityReached)

	s.seed(domain.VolunteerSettings{Enabled: false})
	_, err = s.svc.Register(s.ctx, "p1", user("v2"), declaration())
	s.Require().ErrorIs(err, domain.ErrConflict)

	regs, err := s.svc.ListByProject(s.ctx, "p1", "")
	s.Require().NoError(err)
	s.Len(regs, 2)
	s.Equal(2, s.counters().VolunteerCount)
}

func (s *VolunteerSuite) TestConcurrentRegisterSamePair() {
	s.seed(domain.VolunteerSettings{Enabled: true})
	const callers = 16

	var wg sync.WaitGroup
	var ok, conflicts atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Register(s.ctx, "p1", user("v1"), declaration())
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(callers-1), conflicts.Load())
	regs, err := s.svc.ListByProject(s.ctx, "p1", "")
	s.Require().NoError(err)
	s.Len(regs, 1)
	s.Equal(1, s.counters().PendingVolunteers)
}

func (s *VolunteerSuite) TestConcurrentReviewsApplyOnce() {
	s.seed(domain.VolunteerSettings{Enabled: true})
	reg := s.register("v1")

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.svc.Review(s.ctx, reg.ID, s.admin, Decision{Approve: true}); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(domain.ProjectCounters{VolunteerCount: 1}, s.counters())
}

func (s *VolunteerSuite) TestActivityIsMonotonic() {
	reg := s.approved("v1")
	_, err := s.svc.Activate(s.ctx, reg.ID)
	s.Require().NoError(err)

	updated, err := s.svc.RecordActivity(s.ctx, reg.ID, user("v1"), domain.Activity{Hours: intp(5), Tasks: intp(2)})
	s.Require().NoError(err)
	s.Equal(90, updated.ContributionScore)
	s.NotNil(updated.LastActivityAt)

	updated, err = s.svc.RecordActivity(s.ctx, reg.ID, s.admin, domain.Activity{Tasks: intp(3)})
	s.Require().NoError(err)
	s.Equal(5, updated.HoursContributed, "omitted hours keep the stored value")
	s.Equal(110, updated.ContributionScore)

	_, err = s.svc.RecordActivity(s.ctx, reg.ID, user("v1"), domain.Activity{Hours: intp(4)})
	s.Require().ErrorIs(err, domain.ErrValidation)

	_, err = s.svc.RecordActivity(s.ctx, reg.ID, user("v2"), domain.Activity{Hours: intp(8)})
	s.Require().ErrorIs(err, domain.ErrForbidden)

	stored, err := s.svc.Get(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(5, stored.HoursContributed)
	s.Equal(domain.VolunteerActive, stored.Status, "activity never changes status")
}

func (s *VolunteerSuite) TestActivityRequiresApprovedOrActive() {
	reg := s.register("v1")
	_, err := s.svc.RecordActivity(s.ctx, reg.ID, user("v1"), domain.Activity{Hours: intp(1)})
	s.Require().ErrorIs(err, domain.ErrInvalidState)
}

func (s *VolunteerSuite) TestCompleteQueuesCertificate() {
	reg := s.approved("v1")
	_, err := s.svc.Activate(s.ctx, reg.ID)
	s.Require().NoError(err)
	_, err = s.svc.RecordActivity(s.ctx, reg.ID, user("v1"), domain.Activity{Hours: intp(12), Tasks: intp(4)})
	s.Require().NoError(err)

	done, err := s.svc.Complete(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(domain.VolunteerCompleted, done.Status)
	s.NotNil(done.CompletedAt)
	s.Equal(1, s.counters().VolunteerCount, "completed volunteers stay counted")

	jobs := s.store.CertificateJobs().Jobs()
	s.Require().Len(jobs, 1)
	s.Equal(domain.SubjectVolunteer, jobs[0].Subject)
	s.Equal(reg.ID, jobs[0].SubjectID)

	_, err = s.svc.Complete(s.ctx, reg.ID)
	s.Require().ErrorIs(err, domain.ErrInvalidState)
	_, err = s.svc.Withdraw(s.ctx, reg.ID, user("v1"))
	s.Require().ErrorIs(err, domain.ErrInvalidState)
}

func (s *VolunteerSuite) TestCompleteFromPendingFails() {
	reg := s.register("v1")
	_, err := s.svc.Complete(s.ctx, reg.ID)
	s.Require().ErrorIs(err, domain.ErrInvalidState)
}

func (s *VolunteerSuite) TestWithdraw() {
	active := s.approved("v1")
	_, err := s.svc.Activate(s.ctx, active.ID)
	s.Require().NoError(err)
	pending := s.register("v2")
	s.Equal(domain.ProjectCounters{VolunteerCount: 1, PendingVolunteers: 1}, s.counters())

	_, err = s.svc.Withdraw(s.ctx, active.ID, s.admin)
	s.Require().ErrorIs(err, domain.ErrForbidden, "only the volunteer may withdraw")
	_, err = s.svc.Withdraw(s.ctx, active.ID, user("v2"))
	s.Require().ErrorIs(err, domain.ErrForbidden)

	withdrawn, err := s.svc.Withdraw(s.ctx, active.ID, user("v1"))
	s.Require().NoError(err)
	s.Equal(domain.VolunteerWithdrawn, withdrawn.Status)
	s.NotNil(withdrawn.WithdrawnAt)
	_, err = s.svc.Withdraw(s.ctx, active.ID, user("v1"))
	s.Require().ErrorIs(err, domain.ErrInvalidState)

	_, err = s.svc.Withdraw(s.ctx, pending.ID, user("v2"))
	s.Require().NoError(err)
	s.Equal(domain.ProjectCounters{}, s.counters())
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.VolunteerTransitions.WithLabelValues(string(domain.VolunteerWithdrawn))))
}

func (s *VolunteerSuite) TestSuspend() {
	reg := s.approved("v1")
	_, err := s.svc.Suspend(s.ctx, reg.ID, s.admin, "no-show")
	s.Require().ErrorIs(err, domain.ErrInvalidState, "only active volunteers can be suspended")

	_, err = s.svc.Activate(s.ctx, reg.ID)
	s.Require().NoError(err)
	suspended, err := s.svc.Suspend(s.ctx, reg.ID, s.admin, "no-show")
	s.Require().NoError(err)
	s.Equal(domain.VolunteerSuspended, suspended.Status)
	s.NotNil(suspended.SuspendedAt)
	s.Equal(domain.ProjectCounters{}, s.counters())
}

func (s *VolunteerSuite) TestDelete() {
	pending := s.register("v1")
	s.Require().NoError(s.svc.Delete(s.ctx, pending.ID))
	s.Equal(0, s.counters().PendingVolunteers)
	_, err := s.svc.Get(s.ctx, pending.ID)
	s.Require().ErrorIs(err, domain.ErrNotFound)

	approved := s.approved("v2")
	s.Require().ErrorIs(s.svc.Delete(s.ctx, approved.ID), domain.ErrInvalidState)
}

func (s *VolunteerSuite) TestCountersMatchRederivation() {
	s.seed(domain.VolunteerSettings{Enabled: true})
	for i := 0; i < 6; i++ {
		reg := s.register(fmt.Sprintf("v%d", i))
		switch i % 3 {
		case 0:
			_, err := s.svc.Review(s.ctx, reg.ID, s.admin, Decision{Approve: true})
			s.Require().NoError(err)
		case 1:
			_, err := s.svc.Review(s.ctx, reg.ID, s.admin, Decision{Approve: false})
			s.Require().NoError(err)
		}
	}
	derived, err := s.store.Projects().DeriveCounters(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(derived, s.counters())
}
