// Package reconcile re-derives project counters from the stored donations and
// registrations and repairs drift left by failed aggregate updates.
package reconcile

import (
	"context"

	"github.com/rs/zerolog"

	"charity/internal/domain"
)

// Drift compares stored counters with the values derived from child rows.
type Drift struct {
	ProjectID string                 `json:"project_id"`
	Stored    domain.ProjectCounters `json:"stored"`
	Derived   domain.ProjectCounters `json:"derived"`
}

// Drifted reports whether stored and derived counters differ.
func (d Drift) Drifted() bool {
	return d.Stored != d.Derived
}

type Service struct {
	projects domain.ProjectRepository
	logger   zerolog.Logger
}

func NewService(projects domain.ProjectRepository, logger zerolog.Logger) *Service {
	return &Service{projects: projects, logger: logger.With().Str("component", "reconcile").Logger()}
}

// Check reports the drift of one project.
func (s *Service) Check(ctx context.Context, projectID string) (Drift, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return Drift{}, err
	}
	derived, err := s.projects.DeriveCounters(ctx, projectID)
	if err != nil {
		return Drift{}, err
	}
	return Drift{ProjectID: projectID, Stored: project.Counters, Derived: derived}, nil
}

// Repair overwrites drifted counters with the derived values and returns the
// drift found. Counters that already match are left untouched.
func (s *Service) Repair(ctx context.Context, projectID string) (Drift, error) {
	drift, err := s.Check(ctx, projectID)
	if err != nil {
		return Drift{}, err
	}
	if !drift.Drifted() {
		return drift, nil
	}
	if err := s.projects.OverwriteCounters(ctx, projectID, drift.Derived); err != nil {
		return Drift{}, err
	}
	s.logger.Warn().
		Str("project_id", projectID).
		Interface("stored", drift.Stored).
		Interface("derived", drift.Derived).
		Msg("project counters repaired")
	return drift, nil
}

// CheckAll runs Check, or Repair when apply is set, for every project and
// returns only the drifted ones.
func (s *Service) CheckAll(ctx context.Context, apply bool) ([]Drift, error) {
	ids, err := s.projects.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	var out []Drift
	for _, id := range ids {
		var drift Drift
		if apply {
			drift, err = s.Repair(ctx, id)
		} else {
			drift, err = s.Check(ctx, id)
		}
		if err != nil {
			return out, err
		}
		if drift.Drifted() {
			out = append(out, drift)
		}
	}
	return out, nil
}
