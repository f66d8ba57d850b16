package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"charity/internal/domain"
	"charity/internal/infra"
	"charity/internal/sqlinline"
)

const registrationPairConstraint = "volunteer_registrations_project_volunteer_key"

// VolunteerRepositoryPG implements domain.VolunteerRepository using PostgreSQL.
type VolunteerRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewVolunteerRepository creates a new registration repo.
func NewVolunteerRepository(sql infra.SQLExecutor) *VolunteerRepositoryPG {
	return &VolunteerRepositoryPG{sql: sql}
}

// Create inserts a registration. The unique (project_id, volunteer_id) index makes
// concurrent duplicates fail with domain.ErrConflict.
func (r *VolunteerRepositoryPG) Create(ctx context.Context, reg *domain.Registration) error {
	availability, err := json.Marshal(reg.Declaration.Availability)
	if err != nil {
		return domain.Internal("encode availability", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertRegistration,
		reg.ID,
		reg.ProjectID,
		reg.VolunteerID,
		reg.Declaration.Skills,
		reg.Declaration.HoursPerWeek,
		reg.Declaration.PreferredRole,
		reg.Declaration.Experience,
		reg.Declaration.Motivation,
		availability,
		string(reg.Status),
		reg.ApprovedAt,
		reg.CreatedAt,
	)
	if err != nil {
		if infra.IsUniqueViolation(err, registrationPairConstraint) {
			return fmt.Errorf("%w: volunteer already registered for this project", domain.ErrConflict)
		}
		return mapErr("insert registration", err)
	}
	return nil
}

// GetByID fetches a registration by its identifier.
func (r *VolunteerRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	reg, err := scanRegistration(r.sql.QueryRow(ctx, sqlinline.QSelectRegistrationByID, id))
	if err != nil {
		return nil, mapErr("select registration", err)
	}
	return reg, nil
}

// Transition applies a conditional status update.
func (r *VolunteerRepositoryPG) Transition(ctx context.Context, t domain.VolunteerTransition) (*domain.Registration, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QTransitionRegistration,
		t.ID,
		toStrings(t.From),
		string(t.To),
		t.ReviewedBy,
		t.ReviewNotes,
		t.RejectionReason,
		t.At,
	)
	reg, err := scanRegistration(row)
	if err == nil {
		return reg, nil
	}
	if !infra.IsNoRows(err) {
		return nil, mapErr("transition registration", err)
	}
	return nil, r.missOrConflict(ctx, t.ID, "registration %s is no longer in status %v", t.ID, t.From)
}

// RecordActivity stores monotonic progress counters.
func (r *VolunteerRepositoryPG) RecordActivity(ctx context.Context, id string, hours, tasks int, allowed []domain.VolunteerStatus, at time.Time) (*domain.Registration, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QRecordRegistrationActivity, id, hours, tasks, toStrings(allowed), at)
	reg, err := scanRegistration(row)
	if err == nil {
		return reg, nil
	}
	if !infra.IsNoRows(err) {
		return nil, mapErr("record activity", err)
	}
	return nil, r.missOrConflict(ctx, id, "registration %s changed before activity was recorded", id)
}

// SetCertificate writes the certificate URL unless one is already stored.
func (r *VolunteerRepositoryPG) SetCertificate(ctx context.Context, id, url string, at time.Time) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QSetRegistrationCertificate, id, url, at)
	if err != nil {
		return false, mapErr("set registration certificate", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a registration while its status is one of allowed.
func (r *VolunteerRepositoryPG) Delete(ctx context.Context, id string, allowed []domain.VolunteerStatus) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteRegistration, id, toStrings(allowed))
	if err != nil {
		return mapErr("delete registration", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.missOrConflict(ctx, id, "registration %s changed status", id)
}

// PairExists checks the (project_id, volunteer_id) index without loading the row.
func (r *VolunteerRepositoryPG) PairExists(ctx context.Context, projectID, volunteerID string) (bool, error) {
	var exists bool
	if err := r.sql.QueryRow(ctx, sqlinline.QRegistrationPairExists, projectID, volunteerID).Scan(&exists); err != nil {
		return false, mapErr("select registration pair", err)
	}
	return exists, nil
}

// CountByStatus counts a project's registrations in the given statuses.
func (r *VolunteerRepositoryPG) CountByStatus(ctx context.Context, projectID string, statuses []domain.VolunteerStatus) (int, error) {
	var n int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountRegistrationsByStatus, projectID, toStrings(statuses)).Scan(&n); err != nil {
		return 0, mapErr("count registrations", err)
	}
	return n, nil
}

// ListByProject returns a project's registrations, optionally filtered by status.
func (r *VolunteerRepositoryPG) ListByProject(ctx context.Context, projectID string, statuses []domain.VolunteerStatus) ([]domain.Registration, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListRegistrationsByProject, projectID, toStrings(statuses))
	if err != nil {
		return nil, mapErr("list registrations", err)
	}
	defer rows.Close()

	var items []domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, mapErr("scan registration", err)
		}
		items = append(items, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list registrations", err)
	}
	return items, nil
}

func (r *VolunteerRepositoryPG) missOrConflict(ctx context.Context, id, format string, args ...any) error {
	var exists bool
	if err := r.sql.QueryRow(ctx, sqlinline.QRegistrationExists, id).Scan(&exists); err != nil {
		return mapErr("check registration", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %s", domain.ErrConflict, fmt.Sprintf(format, args...))
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	var (
		reg          domain.Registration
		status       string
		availability []byte
	)
	err := row.Scan(
		&reg.ID,
		&reg.ProjectID,
		&reg.VolunteerID,
		&reg.Declaration.Skills,
		&reg.Declaration.HoursPerWeek,
		&reg.Declaration.PreferredRole,
		&reg.Declaration.Experience,
		&reg.Declaration.Motivation,
		&availability,
		&status,
		&reg.ReviewedBy,
		&reg.ReviewedAt,
		&reg.ReviewNotes,
		&reg.RejectionReason,
		&reg.HoursContributed,
		&reg.TasksCompleted,
		&reg.LastActivityAt,
		&reg.ContributionScore,
		&reg.Certificate.URL,
		&reg.Certificate.Generated,
		&reg.Certificate.GeneratedAt,
		&reg.ApprovedAt,
		&reg.ActivatedAt,
		&reg.CompletedAt,
		&reg.WithdrawnAt,
		&reg.SuspendedAt,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.Status = domain.VolunteerStatus(status)
	if len(availability) > 0 {
		if err := json.Unmarshal(availability, &reg.Declaration.Availability); err != nil {
			return nil, fmt.Errorf("decode availability: %w", err)
		}
	}
	return &reg, nil
}

var _ domain.VolunteerRepository = (*VolunteerRepositoryPG)(nil)
