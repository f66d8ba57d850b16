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

// DonationRepositoryPG implements domain.DonationRepository using PostgreSQL.
type DonationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewDonationRepository creates a new donation repo.
func NewDonationRepository(sql infra.SQLExecutor) *DonationRepositoryPG {
	return &DonationRepositoryPG{sql: sql}
}

// Create inserts a new donation. A duplicate tracking code yields domain.ErrConflict.
func (r *DonationRepositoryPG) Create(ctx context.Context, d *domain.Donation) error {
	donor, err := json.Marshal(d.Donor)
	if err != nil {
		return domain.Internal("encode donor", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertDonation,
		d.ID,
		d.TrackingCode,
		d.ProjectID,
		d.Amount,
		d.Currency,
		string(d.PaymentMethod),
		string(d.Status),
		d.DonorID,
		donor,
		d.Message,
		d.CreatedAt,
	)
	if err != nil {
		if infra.IsUniqueViolation(err, "donations_tracking_code_key") {
			return fmt.Errorf("%w: tracking code %s already used", domain.ErrConflict, d.TrackingCode)
		}
		return mapErr("insert donation", err)
	}
	return nil
}

// GetByID fetches a donation by its identifier.
func (r *DonationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	return r.getOne(ctx, sqlinline.QSelectDonationByID, id)
}

// GetByTrackingCode fetches a donation by its public tracking code.
func (r *DonationRepositoryPG) GetByTrackingCode(ctx context.Context, code string) (*domain.Donation, error) {
	return r.getOne(ctx, sqlinline.QSelectDonationByTrackingCode, code)
}

// GetByAuthority fetches the donation holding a payment correlation token.
func (r *DonationRepositoryPG) GetByAuthority(ctx context.Context, authority string) (*domain.Donation, error) {
	return r.getOne(ctx, sqlinline.QSelectDonationByAuthority, authority)
}

func (r *DonationRepositoryPG) getOne(ctx context.Context, query string, arg string) (*domain.Donation, error) {
	d, err := scanDonation(r.sql.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapErr("select donation", err)
	}
	return d, nil
}

// Transition applies a conditional status update.
func (r *DonationRepositoryPG) Transition(ctx context.Context, t domain.DonationTransition) (*domain.Donation, error) {
	var receipt any
	if t.Receipt != nil {
		raw, err := json.Marshal(t.Receipt)
		if err != nil {
			return nil, domain.Internal("encode receipt", err)
		}
		receipt = raw
	}
	row := r.sql.QueryRow(ctx, sqlinline.QTransitionDonation,
		t.ID,
		toStrings(t.From),
		string(t.To),
		t.Gateway,
		t.Authority,
		t.TransactionID,
		t.ReferenceID,
		t.BumpAttempts,
		receipt,
		t.AdminNotes,
		t.VerifiedBy,
		t.VerifiedAt,
		t.CompletedAt,
		t.RefundedAt,
		t.At,
		t.IfAuthority,
	)
	d, err := scanDonation(row)
	if err == nil {
		return d, nil
	}
	if infra.IsUniqueViolation(err, "donations_authority_key") {
		return nil, fmt.Errorf("%w: authority already bound", domain.ErrConflict)
	}
	if !infra.IsNoRows(err) {
		return nil, mapErr("transition donation", err)
	}
	exists, err := r.exists(ctx, sqlinline.QDonationExists, t.ID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	if t.IfAuthority != "" {
		return nil, fmt.Errorf("%w: donation %s is no longer in status %v with authority %s", domain.ErrConflict, t.ID, t.From, t.IfAuthority)
	}
	return nil, fmt.Errorf("%w: donation %s is no longer in status %v", domain.ErrConflict, t.ID, t.From)
}

// SetCertificate writes the certificate URL unless one is already stored.
func (r *DonationRepositoryPG) SetCertificate(ctx context.Context, id, url string, at time.Time) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QSetDonationCertificate, id, url, at)
	if err != nil {
		return false, mapErr("set donation certificate", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the donation while its status is one of allowed.
func (r *DonationRepositoryPG) Delete(ctx context.Context, id string, allowed []domain.DonationStatus) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteDonation, id, toStrings(allowed))
	if err != nil {
		return mapErr("delete donation", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	exists, err := r.exists(ctx, sqlinline.QDonationExists, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: donation %s changed status", domain.ErrConflict, id)
}

// ListByProject returns the newest donations of a project, optionally filtered by status.
func (r *DonationRepositoryPG) ListByProject(ctx context.Context, projectID string, statuses []domain.DonationStatus, limit int) ([]domain.Donation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListDonationsByProject, projectID, toStrings(statuses), limit)
	if err != nil {
		return nil, mapErr("list donations", err)
	}
	defer rows.Close()

	var items []domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, mapErr("scan donation", err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list donations", err)
	}
	return items, nil
}

func (r *DonationRepositoryPG) exists(ctx context.Context, query, id string) (bool, error) {
	var ok bool
	if err := r.sql.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, mapErr("check existence", err)
	}
	return ok, nil
}

func scanDonation(row rowScanner) (*domain.Donation, error) {
	var (
		d       domain.Donation
		method  string
		status  string
		donor   []byte
		receipt []byte
	)
	err := row.Scan(
		&d.ID,
		&d.TrackingCode,
		&d.ProjectID,
		&d.Amount,
		&d.Currency,
		&method,
		&status,
		&d.Gateway,
		&d.Authority,
		&d.TransactionID,
		&d.ReferenceID,
		&d.PaymentAttempts,
		&d.DonorID,
		&donor,
		&d.Message,
		&receipt,
		&d.Certificate.URL,
		&d.Certificate.Generated,
		&d.Certificate.GeneratedAt,
		&d.AdminNotes,
		&d.VerifiedBy,
		&d.VerifiedAt,
		&d.CompletedAt,
		&d.RefundedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.PaymentMethod = domain.PaymentMethod(method)
	d.Status = domain.DonationStatus(status)
	if len(donor) > 0 {
		if err := json.Unmarshal(donor, &d.Donor); err != nil {
			return nil, fmt.Errorf("decode donor: %w", err)
		}
	}
	if len(receipt) > 0 {
		var rc domain.Receipt
		if err := json.Unmarshal(receipt, &rc); err != nil {
			return nil, fmt.Errorf("decode receipt: %w", err)
		}
		d.Receipt = &rc
	}
	return &d, nil
}

var _ domain.DonationRepository = (*DonationRepositoryPG)(nil)
