package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"charity/internal/domain"
)

// DonationStore implements domain.DonationRepository.
type DonationStore struct {
	s *Store
}

func cloneDonation(d *domain.Donation) *domain.Donation {
	out := *d
	out.DonorID = cloneString(d.DonorID)
	out.VerifiedBy = cloneString(d.VerifiedBy)
	out.VerifiedAt = cloneTime(d.VerifiedAt)
	out.CompletedAt = cloneTime(d.CompletedAt)
	out.RefundedAt = cloneTime(d.RefundedAt)
	out.Certificate.GeneratedAt = cloneTime(d.Certificate.GeneratedAt)
	if d.Receipt != nil {
		rc := *d.Receipt
		rc.VerifiedBy = cloneString(d.Receipt.VerifiedBy)
		rc.VerifiedAt = cloneTime(d.Receipt.VerifiedAt)
		out.Receipt = &rc
	}
	return &out
}

func (ds *DonationStore) Create(ctx context.Context, d *domain.Donation) error {
	ds.s.mu.Lock()
	defer ds.s.mu.Unlock()
	if _, ok := ds.s.donations[d.ID]; ok {
		return fmt.Errorf("%w: donation %s exists", domain.ErrConflict, d.ID)
	}
	for _, existing := range ds.s.donations {
		if existing.TrackingCode == d.TrackingCode {
			return fmt.Errorf("%w: tracking code %s already used", domain.ErrConflict, d.TrackingCode)
		}
	}
	stored := cloneDonation(d)
	stored.UpdatedAt = d.CreatedAt
	ds.s.donations[d.ID] = stored
	return nil
}

func (ds *DonationStore) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	ds.s.mu.Lock()
	defer ds.s.mu.Unlock()
	d, ok := ds.s.donations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDonation(d), nil
}

func (ds *DonationStore) GetByTrackingCode(ctx context.Context, code string) (*domain.Donation, error) {
	return ds.find(func(d *domain.Donation) bool { return d.TrackingCode == code })
}

func (ds *DonationStore) GetByAuthority(ctx context.Context, authority string) (*domain.Donation, error) {
	if authority == "" {
		return nil, domain.ErrNotFound
	}
	return ds.find(func(d *domain.Donation) bool { return d.Authority == authority })
}

func (ds *DonationStore) find(match func(*domain.Donation) bool) (*domain.Donation, error) {
	ds.s.mu.Lock()
	defer ds.s.mu.Unlock()
	for _, d := range ds.s.donations {
		if match(d) {
			return cloneDonation(d), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (ds *DonationStore) Transition(ctx context.Context, t domain.DonationTransition) (*domain.Donation, error) {
	ds.s.mu.Lock()
	defer ds.s.mu.Unlock()
	d, ok := ds.s.donations[t.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !contains(t.From, d.Status) {
		return nil, fmt.Errorf("%w: donation %s is no longer in status %v", domain.ErrConflict, t.ID, t.From)
	}
	if t.IfAuthority != "" && d.Authority != t.IfAuthority {
		return nil, fmt.Errorf("%w: donation %s no longer holds authority %s", domain.ErrConflict, t.ID, t.IfAuthority)
	}
	if t.Authority != "" {
		for id, other := range ds.s.donations {
			if id != t.ID && other.Authority == t.Authority {
				return nil, fmt.Errorf("%w: authority already bound", domain.ErrConflict)
			}
		}
		d.Authority = t.Authority
	}
	d.Status = t.To
	if t.Gateway != "" {
		d.Gateway = t.Gateway
	}
	if t.TransactionID != "" {
		d.TransactionID = t.TransactionID
	}
	if t.ReferenceID != "" {
		d.ReferenceID = t.ReferenceID
	}
	if t.BumpAttempts {
		d.PaymentAttempts++
	}
	if t.Receipt != nil {
		rc := *t.Receipt
		d.Receipt = &rc
	}
	if t.AdminNotes != "" {
		d.AdminNotes = t.AdminNotes
	}
	if t.VerifiedBy != nil {
		d.VerifiedBy = cloneString(t.VerifiedBy)
	}
	if t.VerifiedAt != nil {
		d.VerifiedAt = cloneTime(t.VerifiedAt)
	}
	if t.CompletedAt != nil {
		d.CompletedAt = cloneTime(t.CompletedAt)
	}
	if t.RefundedAt != nil {
		d.RefundedAt = cloneTime(t.RefundedAt)
	}
	d.UpdatedAt = t.At
	return cloneDonation(d), nil
}

func (ds *DonationStore) SetCertificate(ctx context.Context, id, url string, at time.Time) (bool, error) {
	ds.s.mu.Lock()
	defer ds.s.mu.Unlock()
	d, ok := ds.s.donations[id]
	if !ok || d.Certificate.Generated {
		return false, nil
	}
	d.Certificate = domain.Certificate{URL: url, Generated: true, GeneratedAt: cloneTime(&at)}
	d.UpdatedAt = at
	return true, nil
}

func (ds *DonationStore) Delete(ctx context.Context, id string, allowed []domain.DonationStatus) error {
	ds.s.mu.Lock()
	defer ds.s.mu.Unlock()
	d, ok := ds.s.donations[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !contains(allowed, d.Status) {
		return fmt.Errorf("%w: donation %s changed status", domain.ErrConflict, id)
	}
	delete(ds.s.donations, id)
	return nil
}

func (ds *DonationStore) ListByProject(ctx context.Context, projectID string, statuses []domain.DonationStatus, limit int) ([]domain.Donation, error) {
	if limit <= 0 {
		limit = 50
	}
	ds.s.mu.Lock()
	defer ds.s.mu.Unlock()
	var items []domain.Donation
	for _, d := range ds.s.donations {
		if d.ProjectID != projectID {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, d.Status) {
			continue
		}
		items = append(items, *cloneDonation(d))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].TrackingCode > items[j].TrackingCode
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var _ domain.DonationRepository = (*DonationStore)(nil)
