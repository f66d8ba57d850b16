package repo

import (
	"context"
	"fmt"

	"charity/internal/domain"
	"charity/internal/infra"
	"charity/internal/sqlinline"
)

// ProjectRepositoryPG implements domain.ProjectRepository. Every counter mutation
// is a single UPDATE so concurrent lifecycles never lose increments.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewProjectRepository creates a new project repo.
func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

// GetProject reads settings and counters straight from the table.
func (r *ProjectRepositoryPG) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := r.sql.QueryRow(ctx, sqlinline.QSelectProject, id).Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Donation.Enabled,
		&p.Donation.MinimumAmount,
		&p.Donation.AllowAnonymous,
		&p.Donation.ShowDonors,
		&p.Volunteer.Enabled,
		&p.Volunteer.MaxVolunteers,
		&p.Volunteer.AutoApprove,
		&p.Volunteer.RequiredSkills,
		&p.Counters.AmountRaised,
		&p.Counters.DonorCount,
		&p.Counters.VolunteerCount,
		&p.Counters.PendingVolunteers,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr("select project", err)
	}
	return &p, nil
}

// Upsert stores project settings. Counters are left untouched on update.
func (r *ProjectRepositoryPG) Upsert(ctx context.Context, p *domain.Project) error {
	skills := p.Volunteer.RequiredSkills
	if skills == nil {
		skills = []string{}
	}
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertProject,
		p.ID,
		p.Title,
		p.Slug,
		p.Donation.Enabled,
		p.Donation.MinimumAmount,
		p.Donation.AllowAnonymous,
		p.Donation.ShowDonors,
		p.Volunteer.Enabled,
		p.Volunteer.MaxVolunteers,
		p.Volunteer.AutoApprove,
		skills,
	)
	return mapErr("upsert project", err)
}

func (r *ProjectRepositoryPG) ApplyDonationSuccess(ctx context.Context, projectID string, amount int64) error {
	return r.apply(ctx, "apply donation success", sqlinline.QApplyDonationSuccess, projectID, amount)
}

func (r *ProjectRepositoryPG) ApplyDonationReversal(ctx context.Context, projectID string, amount int64) error {
	return r.apply(ctx, "apply donation reversal", sqlinline.QApplyDonationReversal, projectID, amount)
}

func (r *ProjectRepositoryPG) ApplyVolunteerApproval(ctx context.Context, projectID string, fromPending bool) error {
	return r.apply(ctx, "apply volunteer approval", sqlinline.QApplyVolunteerApproval, projectID, fromPending)
}

func (r *ProjectRepositoryPG) ApplyVolunteerWithdrawal(ctx context.Context, projectID string) error {
	return r.apply(ctx, "apply volunteer withdrawal", sqlinline.QApplyVolunteerWithdrawal, projectID)
}

func (r *ProjectRepositoryPG) ApplyPendingDelta(ctx context.Context, projectID string, delta int) error {
	return r.apply(ctx, "apply pending delta", sqlinline.QApplyPendingDelta, projectID, delta)
}

func (r *ProjectRepositoryPG) apply(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.sql.Exec(ctx, query, args...)
	if err != nil {
		return mapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %v", domain.ErrNotFound, args[0])
	}
	return nil
}

// ListIDs returns every project id in creation order.
func (r *ProjectRepositoryPG) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListProjectIDs)
	if err != nil {
		return nil, mapErr("list projects", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr("scan project id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list projects", err)
	}
	return ids, nil
}

// DeriveCounters recomputes the counters from donations and registrations.
func (r *ProjectRepositoryPG) DeriveCounters(ctx context.Context, projectID string) (domain.ProjectCounters, error) {
	var c domain.ProjectCounters
	err := r.sql.QueryRow(ctx, sqlinline.QDeriveProjectCounters, projectID).Scan(
		&c.AmountRaised,
		&c.DonorCount,
		&c.VolunteerCount,
		&c.PendingVolunteers,
	)
	if err != nil {
		return domain.ProjectCounters{}, mapErr("derive counters", err)
	}
	return c, nil
}

// OverwriteCounters replaces the stored counters. Only reconciliation calls it.
func (r *ProjectRepositoryPG) OverwriteCounters(ctx context.Context, projectID string, c domain.ProjectCounters) error {
	return r.apply(ctx, "overwrite counters", sqlinline.QOverwriteProjectCounters,
		projectID, c.AmountRaised, c.DonorCount, c.VolunteerCount, c.PendingVolunteers)
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
