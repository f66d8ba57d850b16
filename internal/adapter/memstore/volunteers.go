package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"charity/internal/domain"
)

// VolunteerStore implements domain.VolunteerRepository.
type VolunteerStore struct {
	s *Store
}

func cloneRegistration(r *domain.Registration) *domain.Registration {
	out := *r
	out.Declaration.Skills = cloneStrings(r.Declaration.Skills)
	out.Declaration.Availability.Days = cloneStrings(r.Declaration.Availability.Days)
	out.Declaration.Availability.TimeSlots = cloneStrings(r.Declaration.Availability.TimeSlots)
	out.ReviewedBy = cloneString(r.ReviewedBy)
	out.ReviewedAt = cloneTime(r.ReviewedAt)
	out.LastActivityAt = cloneTime(r.LastActivityAt)
	out.Certificate.GeneratedAt = cloneTime(r.Certificate.GeneratedAt)
	out.ApprovedAt = cloneTime(r.ApprovedAt)
	out.ActivatedAt = cloneTime(r.ActivatedAt)
	out.CompletedAt = cloneTime(r.CompletedAt)
	out.WithdrawnAt = cloneTime(r.WithdrawnAt)
	out.SuspendedAt = cloneTime(r.SuspendedAt)
	return &out
}

func (vs *VolunteerStore) Create(ctx context.Context, reg *domain.Registration) error {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()
	for _, existing := range vs.s.registrations {
		if existing.ProjectID == reg.ProjectID && existing.VolunteerID == reg.VolunteerID {
			return fmt.Errorf("%w: volunteer already registered for this project", domain.ErrConflict)
		}
	}
	stored := cloneRegistration(reg)
	stored.UpdatedAt = reg.CreatedAt
	vs.s.registrations[reg.ID] = stored
	return nil
}

func (vs *VolunteerStore) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()
	reg, ok := vs.s.registrations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRegistration(reg), nil
}

func (vs *VolunteerStore) PairExists(ctx context.Context, projectID, volunteerID string) (bool, error) {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()
	for _, existing := range vs.s.registrations {
		if existing.ProjectID == projectID && existing.VolunteerID == volunteerID {
			return true, nil
		}
	}
	return false, nil
}

func (vs *VolunteerStore) Transition(ctx context.Context, t domain.VolunteerTransition) (*domain.Registration, error) {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()
	reg, ok := vs.s.registrations[t.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !contains(t.From, reg.Status) {
		return nil, fmt.Errorf("%w: registration %s is no longer in status %v", domain.ErrConflict, t.ID, t.From)
	}
	at := t.At
	reg.Status = t.To
	if t.ReviewedBy != nil {
		reg.ReviewedBy = cloneString(t.ReviewedBy)
		reg.ReviewedAt = &at
	}
	if t.ReviewNotes != "" {
		reg.ReviewNotes = t.ReviewNotes
	}
	if t.RejectionReason != "" {
		reg.RejectionReason = t.RejectionReason
	}
	stamp := func(field **time.Time) {
		if *field == nil {
			v := at
			*field = &v
		}
	}
	switch t.To {
	case domain.VolunteerApproved:
		stamp(&reg.ApprovedAt)
	case domain.VolunteerActive:
		stamp(&reg.ActivatedAt)
	case domain.VolunteerCompleted:
		stamp(&reg.CompletedAt)
	case domain.VolunteerWithdrawn:
		stamp(&reg.WithdrawnAt)
	case domain.VolunteerSuspended:
		stamp(&reg.SuspendedAt)
	}
	reg.UpdatedAt = at
	return cloneRegistration(reg), nil
}

func (vs *VolunteerStore) RecordActivity(ctx context.Context, id string, hours, tasks int, allowed []domain.VolunteerStatus, at time.Time) (*domain.Registration, error) {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()
	reg, ok := vs.s.registrations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !contains(allowed, reg.Status) || hours < reg.HoursContributed || tasks < reg.TasksCompleted {
		return nil, fmt.Errorf("%w: registration %s changed before activity was recorded", domain.ErrConflict, id)
	}
	reg.HoursContributed = hours
	reg.TasksCompleted = tasks
	reg.ContributionScore = domain.ContributionScore(hours, tasks)
	reg.LastActivityAt = cloneTime(&at)
	reg.UpdatedAt = at
	return cloneRegistration(reg), nil
}

func (vs *VolunteerStore) SetCertificate(ctx context.Context, id, url string, at time.Time) (bool, error) {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()
	reg, ok := vs.s.registrations[id]
	if !ok || reg.Certificate.Generated {
		return false, nil
	}
	reg.Certificate = domain.Certificate{URL: url, Generated: true, GeneratedAt: cloneTime(&at)}
	reg.UpdatedAt = at
	return true, nil
}

func (vs *VolunteerStore) Delete(ctx context.Context, id string, allowed []domain.VolunteerStatus) error {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()
	reg, ok := vs.s.registrations[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !contains(allowed, reg.Status) {
		return fmt.Errorf("%w: registration %s changed status", domain.ErrConflict, id)
	}
	delete(vs.s.registrations, id)
	return nil
}

func (vs *VolunteerStore) CountByStatus(ctx context.Context, projectID string, statuses []domain.VolunteerStatus) (int, error) {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()
	n := 0
	for _, reg := range vs.s.registrations {
		if reg.ProjectID == projectID && contains(statuses, reg.Status) {
			n++
		}
	}
	return n, nil
}

func (vs *VolunteerStore) ListByProject(ctx context.Context, projectID string, statuses []domain.VolunteerStatus) ([]domain.Registration, error) {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()
	var items []domain.Registration
	for _, reg := range vs.s.registrations {
		if reg.ProjectID != projectID {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, reg.Status) {
			continue
		}
		items = append(items, *cloneRegistration(reg))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

var _ domain.VolunteerRepository = (*VolunteerStore)(nil)
