// Package volunteer implements the volunteer registration lifecycle and its
// effect on the project's volunteer and pending counters.
package volunteer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"charity/internal/domain"
	"charity/internal/events"
	"charity/internal/metrics"
	"charity/internal/validation"
)

var tracer = otel.Tracer("charity/volunteer")

// CertificateQueue schedules a volunteer certificate after completion commits.
type CertificateQueue interface {
	Enqueue(ctx context.Context, subject domain.CertificateSubject, subjectID string) error
}

// Deps lists the collaborators of the Service. Events, Metrics and Certificates may be nil.
type Deps struct {
	Settings      domain.ProjectSettingsGuard
	Aggregates    domain.ProjectAggregateStore
	Registrations domain.VolunteerRepository
	Certificates  CertificateQueue
	Events        events.Publisher
	Metrics       *metrics.Lifecycle
	Logger        zerolog.Logger
}

type Service struct {
	settings      domain.ProjectSettingsGuard
	aggregates    domain.ProjectAggregateStore
	registrations domain.VolunteerRepository
	certificates  CertificateQueue
	events        events.Publisher
	metrics       *metrics.Lifecycle
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(deps Deps) *Service {
	return &Service{
		settings:      deps.Settings,
		aggregates:    deps.Aggregates,
		registrations: deps.Registrations,
		certificates:  deps.Certificates,
		events:        deps.Events,
		metrics:       deps.Metrics,
		logger:        deps.Logger.With().Str("component", "volunteer").Logger(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

var occupying = []domain.VolunteerStatus{domain.VolunteerApproved, domain.VolunteerActive}

// Register creates the registration of actor for a project. Projects with
// auto approval skip the pending state.
func (s *Service) Register(ctx context.Context, projectID string, actor domain.Actor, decl domain.Declaration) (*domain.Registration, error) {
	ctx, span := tracer.Start(ctx, "volunteer.register")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID))

	if actor.ID == "" {
		return nil, domain.ErrForbidden
	}
	if err := validation.Struct(decl); err != nil {
		return nil, err
	}
	project, err := s.settings.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	// An existing pair wins over the settings and capacity gates. Create keeps
	// the unique index as the atomic check for concurrent registrations.
	exists, err := s.registrations.PairExists(ctx, project.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: volunteer already registered for this project", domain.ErrConflict)
	}
	if !project.Volunteer.Enabled {
		return nil, domain.InvalidStatef("volunteering is disabled for this project")
	}
	if err := s.checkCapacity(ctx, project); err != nil {
		return nil, err
	}

	now := s.now()
	reg := &domain.Registration{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		VolunteerID: actor.ID,
		Declaration: decl,
		Status:      domain.VolunteerPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if project.Volunteer.AutoApprove {
		reg.Status = domain.VolunteerApproved
		reg.ApprovedAt = &now
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		return nil, err
	}

	if reg.Status == domain.VolunteerApproved {
		s.aggregate(s.aggregates.ApplyVolunteerApproval(ctx, reg.ProjectID, false), reg)
	} else {
		s.aggregate(s.aggregates.ApplyPendingDelta(ctx, reg.ProjectID, 1), reg)
	}
	s.metrics.VolunteerTransition(string(reg.Status))
	s.publish(ctx, events.VolunteerRegistered, reg)
	if reg.Status == domain.VolunteerApproved {
		s.publish(ctx, events.VolunteerApproved, reg)
	}
	s.logger.Info().
		Str("registration_id", reg.ID).
		Str("project_id", reg.ProjectID).
		Str("volunteer_id", reg.VolunteerID).
		Str("status", string(reg.Status)).
		Msg("volunteer registered")
	return reg, nil
}

// checkCapacity reads the stored approved and active registrations at decision
// time. Two concurrent approvals may still both pass.
func (s *Service) checkCapacity(ctx context.Context, project *domain.Project) error {
	if project.Volunteer.MaxVolunteers <= 0 {
		return nil
	}
	n, err := s.registrations.CountByStatus(ctx, project.ID, occupying)
	if err != nil {
		return err
	}
	if n >= project.Volunteer.MaxVolunteers {
		return domain.ErrCapacityReached
	}
	return nil
}

// Decision is an admin review of a pending registration.
type Decision struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes" validate:"max=1000"`
	Reason  string `json:"reason" validate:"max=500"`
}

// Review approves or rejects a pending registration.
func (s *Service) Review(ctx context.Context, id string, reviewer domain.Actor, dec Decision) (*domain.Registration, error) {
	if err := validation.Struct(dec); err != nil {
		return nil, err
	}
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != domain.VolunteerPending {
		return nil, domain.InvalidStatef("registration is %s and not awaiting review", reg.Status)
	}
	to := domain.VolunteerRejected
	if dec.Approve {
		project, err := s.settings.GetProject(ctx, reg.ProjectID)
		if err != nil {
			return nil, err
		}
		if err := s.checkCapacity(ctx, project); err != nil {
			return nil, err
		}
		to = domain.VolunteerApproved
	}

	reviewerID := reviewer.ID
	t := domain.VolunteerTransition{
		ID:          id,
		From:        []domain.VolunteerStatus{domain.VolunteerPending},
		To:          to,
		ReviewedBy:  &reviewerID,
		ReviewNotes: dec.Notes,
		At:          s.now(),
	}
	if !dec.Approve {
		t.RejectionReason = dec.Reason
	}
	updated, err := s.transition(ctx, t)
	if err != nil {
		return nil, err
	}

	if dec.Approve {
		s.aggregate(s.aggregates.ApplyVolunteerApproval(ctx, updated.ProjectID, true), updated)
		s.publish(ctx, events.VolunteerApproved, updated)
	} else {
		s.aggregate(s.aggregates.ApplyPendingDelta(ctx, updated.ProjectID, -1), updated)
	}
	s.logger.Info().Str("registration_id", id).Str("reviewer", reviewer.ID).Str("status", string(to)).Msg("registration reviewed")
	return updated, nil
}

// Activate marks an approved volunteer as active on the project.
func (s *Service) Activate(ctx context.Context, id string) (*domain.Registration, error) {
	updated, err := s.transition(ctx, domain.VolunteerTransition{
		ID:   id,
		From: []domain.VolunteerStatus{domain.VolunteerApproved},
		To:   domain.VolunteerActive,
		At:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("registration_id", id).Msg("volunteer activated")
	return updated, nil
}

// RecordActivity stores reported progress. Nil fields keep their stored value
// and neither counter may go down.
func (s *Service) RecordActivity(ctx context.Context, id string, actor domain.Actor, act domain.Activity) (*domain.Registration, error) {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != reg.VolunteerID {
		return nil, domain.ErrForbidden
	}
	if reg.Status != domain.VolunteerApproved && reg.Status != domain.VolunteerActive {
		return nil, domain.InvalidStatef("registration is %s and does not accept activity", reg.Status)
	}
	hours, tasks := reg.HoursContributed, reg.TasksCompleted
	if act.Hours != nil {
		hours = *act.Hours
	}
	if act.Tasks != nil {
		tasks = *act.Tasks
	}
	if err := checkMonotonic(reg, hours, tasks); err != nil {
		return nil, err
	}

	updated, err := s.registrations.RecordActivity(ctx, id, hours, tasks, occupying, s.now())
	if errors.Is(err, domain.ErrConflict) {
		current, gerr := s.registrations.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if current.Status != domain.VolunteerApproved && current.Status != domain.VolunteerActive {
			return nil, domain.InvalidStatef("registration is %s and does not accept activity", current.Status)
		}
		if err := checkMonotonic(current, hours, tasks); err != nil {
			return nil, err
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("registration_id", id).Int("hours", hours).Int("tasks", tasks).Msg("activity recorded")
	return updated, nil
}

func checkMonotonic(reg *domain.Registration, hours, tasks int) error {
	if hours < reg.HoursContributed {
		return domain.Validationf("hours contributed cannot decrease below %d", reg.HoursContributed)
	}
	if tasks < reg.TasksCompleted {
		return domain.Validationf("tasks completed cannot decrease below %d", reg.TasksCompleted)
	}
	return nil
}

// Complete closes an active (or approved) registration and queues its certificate.
func (s *Service) Complete(ctx context.Context, id string) (*domain.Registration, error) {
	ctx, span := tracer.Start(ctx, "volunteer.complete")
	defer span.End()

	updated, err := s.transition(ctx, domain.VolunteerTransition{
		ID:   id,
		From: []domain.VolunteerStatus{domain.VolunteerActive, domain.VolunteerApproved},
		To:   domain.VolunteerCompleted,
		At:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	if s.certificates != nil && !updated.Certificate.Generated {
		if err := s.certificates.Enqueue(ctx, domain.SubjectVolunteer, updated.ID); err != nil {
			s.logger.Error().Err(err).Str("registration_id", id).Msg("certificate job not queued")
		}
	}
	s.publish(ctx, events.VolunteerCompleted, updated)
	s.logger.Info().
		Str("registration_id", id).
		Int("hours", updated.HoursContributed).
		Int("tasks", updated.TasksCompleted).
		Msg("volunteer completed")
	return updated, nil
}

// Withdraw lets a volunteer leave a project. Only the registration's own
// volunteer may withdraw it.
func (s *Service) Withdraw(ctx context.Context, id string, requester domain.Actor) (*domain.Registration, error) {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester.ID != reg.VolunteerID {
		return nil, domain.ErrForbidden
	}
	from := reg.Status
	if from != domain.VolunteerPending && !from.Occupying() {
		return nil, domain.InvalidStatef("registration is %s and cannot be withdrawn", from)
	}
	updated, err := s.transition(ctx, domain.VolunteerTransition{
		ID:   id,
		From: []domain.VolunteerStatus{from},
		To:   domain.VolunteerWithdrawn,
		At:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	if from == domain.VolunteerPending {
		s.aggregate(s.aggregates.ApplyPendingDelta(ctx, updated.ProjectID, -1), updated)
	} else {
		s.aggregate(s.aggregates.ApplyVolunteerWithdrawal(ctx, updated.ProjectID), updated)
	}
	s.publish(ctx, events.VolunteerWithdrawn, updated)
	s.logger.Info().Str("registration_id", id).Str("from", string(from)).Msg("volunteer withdrew")
	return updated, nil
}

// Suspend removes an active volunteer from the project's count.
func (s *Service) Suspend(ctx context.Context, id string, reviewer domain.Actor, reason string) (*domain.Registration, error) {
	if len(reason) > 500 {
		return nil, domain.Validationf("reason must be at most 500 characters")
	}
	reviewerID := reviewer.ID
	updated, err := s.transition(ctx, domain.VolunteerTransition{
		ID:          id,
		From:        []domain.VolunteerStatus{domain.VolunteerActive},
		To:          domain.VolunteerSuspended,
		ReviewedBy:  &reviewerID,
		ReviewNotes: reason,
		At:          s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.aggregate(s.aggregates.ApplyVolunteerWithdrawal(ctx, updated.ProjectID), updated)
	s.logger.Info().Str("registration_id", id).Str("reviewer", reviewer.ID).Msg("volunteer suspended")
	return updated, nil
}

// Delete removes a pending or rejected registration.
func (s *Service) Delete(ctx context.Context, id string) error {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if reg.Status != domain.VolunteerPending && reg.Status != domain.VolunteerRejected {
		return domain.InvalidStatef("only pending/rejected registrations may be removed")
	}
	err = s.registrations.Delete(ctx, id, []domain.VolunteerStatus{reg.Status})
	if errors.Is(err, domain.ErrConflict) {
		return domain.InvalidStatef("registration changed status and can no longer be removed")
	}
	if err != nil {
		return err
	}
	if reg.Status == domain.VolunteerPending {
		s.aggregate(s.aggregates.ApplyPendingDelta(ctx, reg.ProjectID, -1), reg)
	}
	s.logger.Info().Str("registration_id", id).Str("status", string(reg.Status)).Msg("registration deleted")
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Registration, error) {
	return s.registrations.GetByID(ctx, id)
}

// ListByProject returns registrations oldest first, optionally filtered by status.
func (s *Service) ListByProject(ctx context.Context, projectID string, status domain.VolunteerStatus) ([]domain.Registration, error) {
	var statuses []domain.VolunteerStatus
	if status != "" {
		statuses = []domain.VolunteerStatus{status}
	}
	return s.registrations.ListByProject(ctx, projectID, statuses)
}

// transition applies t and turns a lost race into InvalidState, since the
// caller's precondition no longer holds.
func (s *Service) transition(ctx context.Context, t domain.VolunteerTransition) (*domain.Registration, error) {
	updated, err := s.registrations.Transition(ctx, t)
	if errors.Is(err, domain.ErrConflict) {
		current, gerr := s.registrations.GetByID(ctx, t.ID)
		if gerr != nil {
			return nil, gerr
		}
		return nil, domain.InvalidStatef("registration is %s and cannot become %s", current.Status, t.To)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.VolunteerTransition(string(t.To))
	return updated, nil
}

func (s *Service) aggregate(err error, reg *domain.Registration) {
	if err == nil {
		return
	}
	s.metrics.AggregateFailure()
	s.logger.Error().Err(err).
		Str("registration_id", reg.ID).
		Str("project_id", reg.ProjectID).
		Msg("project counters not updated; run reconcile")
}

func (s *Service) publish(ctx context.Context, eventType string, reg *domain.Registration) {
	if s.events == nil {
		return
	}
	e := events.Event{
		Type:       eventType,
		Key:        reg.ID,
		ProjectID:  reg.ProjectID,
		OccurredAt: s.now(),
		Data: map[string]any{
			"volunteer_id": reg.VolunteerID,
			"status":       string(reg.Status),
			"hours":        reg.HoursContributed,
			"tasks":        reg.TasksCompleted,
		},
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Str("registration_id", reg.ID).Msg("event not published")
	}
}
