// Package memstore keeps every repository in process memory. It backs the
// STORE_DRIVER=memory mode and the lifecycle tests. A single mutex guards all
// tables so each method is atomic, mirroring the single-statement updates of the
// Postgres repositories.
package memstore

import (
	"sync"
	"time"

	"charity/internal/domain"
)

// Store holds the shared tables.
type Store struct {
	mu            sync.Mutex
	projects      map[string]*domain.Project
	projectOrder  []string
	donations     map[string]*domain.Donation
	registrations map[string]*domain.Registration
	jobs          map[string]*domain.CertificateJob
	jobOrder      []string
	sequences     map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		projects:      make(map[string]*domain.Project),
		donations:     make(map[string]*domain.Donation),
		registrations: make(map[string]*domain.Registration),
		jobs:          make(map[string]*domain.CertificateJob),
		sequences:     make(map[string]int64),
	}
}

// Projects returns the project repository view.
func (s *Store) Projects() *ProjectStore { return &ProjectStore{s: s} }

// Donations returns the donation repository view.
func (s *Store) Donations() *DonationStore { return &DonationStore{s: s} }

// Volunteers returns the registration repository view.
func (s *Store) Volunteers() *VolunteerStore { return &VolunteerStore{s: s} }

// CertificateJobs returns the certificate queue view.
func (s *Store) CertificateJobs() *CertificateJobStore { return &CertificateJobStore{s: s} }

// Tracking returns the tracking code sequence.
func (s *Store) Tracking() *TrackingSequence { return &TrackingSequence{s: s} }

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneStrings(v []string) []string {
	if v == nil {
		return nil
	}
	return append([]string(nil), v...)
}

func contains[S comparable](set []S, v S) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
