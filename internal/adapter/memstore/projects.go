package memstore

import (
	"context"
	"fmt"
	"time"

	"charity/internal/domain"
)

// ProjectStore implements domain.ProjectRepository.
type ProjectStore struct {
	s *Store
}

// Seed inserts or replaces a project's settings, keeping existing counters.
func (p *ProjectStore) Seed(project domain.Project) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if existing, ok := p.s.projects[project.ID]; ok {
		project.Counters = existing.Counters
	} else {
		p.s.projectOrder = append(p.s.projectOrder, project.ID)
	}
	project.Volunteer.RequiredSkills = cloneStrings(project.Volunteer.RequiredSkills)
	project.UpdatedAt = time.Now().UTC()
	p.s.projects[project.ID] = &project
}

func (p *ProjectStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	project, ok := p.s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *project
	out.Volunteer.RequiredSkills = cloneStrings(project.Volunteer.RequiredSkills)
	return &out, nil
}

func (p *ProjectStore) update(id string, fn func(c *domain.ProjectCounters)) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	project, ok := p.s.projects[id]
	if !ok {
		return fmt.Errorf("%w: project %s", domain.ErrNotFound, id)
	}
	fn(&project.Counters)
	project.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *ProjectStore) ApplyDonationSuccess(ctx context.Context, projectID string, amount int64) error {
	return p.update(projectID, func(c *domain.ProjectCounters) {
		c.AmountRaised += amount
		c.DonorCount++
	})
}

func (p *ProjectStore) ApplyDonationReversal(ctx context.Context, projectID string, amount int64) error {
	return p.update(projectID, func(c *domain.ProjectCounters) {
		c.AmountRaised = max(c.AmountRaised-amount, 0)
		c.DonorCount = max(c.DonorCount-1, 0)
	})
}

func (p *ProjectStore) ApplyVolunteerApproval(ctx context.Context, projectID string, fromPending bool) error {
	return p.update(projectID, func(c *domain.ProjectCounters) {
		c.VolunteerCount++
		if fromPending {
			c.PendingVolunteers = max(c.PendingVolunteers-1, 0)
		}
	})
}

func (p *ProjectStore) ApplyVolunteerWithdrawal(ctx context.Context, projectID string) error {
	return p.update(projectID, func(c *domain.ProjectCounters) {
		c.VolunteerCount = max(c.VolunteerCount-1, 0)
	})
}

func (p *ProjectStore) ApplyPendingDelta(ctx context.Context, projectID string, delta int) error {
	return p.update(projectID, func(c *domain.ProjectCounters) {
		c.PendingVolunteers = max(c.PendingVolunteers+delta, 0)
	})
}

func (p *ProjectStore) ListIDs(ctx context.Context) ([]string, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return cloneStrings(p.s.projectOrder), nil
}

func (p *ProjectStore) DeriveCounters(ctx context.Context, projectID string) (domain.ProjectCounters, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.projects[projectID]; !ok {
		return domain.ProjectCounters{}, domain.ErrNotFound
	}
	var c domain.ProjectCounters
	for _, d := range p.s.donations {
		if d.ProjectID == projectID && d.Status.IsSuccess() {
			c.AmountRaised += d.Amount
			c.DonorCount++
		}
	}
	for _, r := range p.s.registrations {
		if r.ProjectID != projectID {
			continue
		}
		if r.Status.Counted() {
			c.VolunteerCount++
		}
		if r.Status == domain.VolunteerPending {
			c.PendingVolunteers++
		}
	}
	return c, nil
}

func (p *ProjectStore) OverwriteCounters(ctx context.Context, projectID string, counters domain.ProjectCounters) error {
	return p.update(projectID, func(c *domain.ProjectCounters) {
		*c = counters
	})
}

var _ domain.ProjectRepository = (*ProjectStore)(nil)
