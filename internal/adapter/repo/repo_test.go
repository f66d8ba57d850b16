package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"charity/internal/domain"
	"charity/internal/sqlinline"
)

type execCall struct {
	query string
	args  []any
}

type stubExecutor struct {
	execTag  pgconn.CommandTag
	execErr  error
	execs    []execCall
	rows     map[string]stubRow
	rowCalls []execCall
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{query: query, args: args})
	return s.execTag, s.execErr
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.rowCalls = append(s.rowCalls, execCall{query: query, args: args})
	if row, ok := s.rows[query]; ok {
		return row
	}
	return stubRow{err: pgx.ErrNoRows}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("dest count mismatch")
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *bool:
			*d = v.(bool)
		case *int:
			*d = v.(int)
		case *int64:
			*d = v.(int64)
		case *string:
			*d = v.(string)
		default:
			return errors.New("unsupported dest")
		}
	}
	return nil
}

func TestApplyDonationSuccessIsSingleStatement(t *testing.T) {
	exec := &stubExecutor{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewProjectRepository(exec)

	if err := repo.ApplyDonationSuccess(context.Background(), "p1", 100000); err != nil {
		t.Fatalf("ApplyDonationSuccess error: %v", err)
	}
	if len(exec.execs) != 1 {
		t.Fatalf("expected exactly one statement, got %d", len(exec.execs))
	}
	call := exec.execs[0]
	if call.query != sqlinline.QApplyDonationSuccess {
		t.Fatalf("unexpected query %q", call.query)
	}
	if call.args[0] != "p1" || call.args[1] != int64(100000) {
		t.Fatalf("unexpected args %#v", call.args)
	}
	if !strings.Contains(call.query, "amount_raised = amount_raised + $2") {
		t.Fatalf("increment must happen in SQL, got %q", call.query)
	}
}

func TestApplyCountersMissingProject(t *testing.T) {
	exec := &stubExecutor{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := NewProjectRepository(exec)

	tests := []struct {
		name string
		call func() error
	}{
		{"donation success", func() error { return repo.ApplyDonationSuccess(context.Background(), "missing", 1) }},
		{"volunteer approval", func() error { return repo.ApplyVolunteerApproval(context.Background(), "missing", true) }},
		{"volunteer withdrawal", func() error { return repo.ApplyVolunteerWithdrawal(context.Background(), "missing") }},
		{"pending delta", func() error { return repo.ApplyPendingDelta(context.Background(), "missing", -1) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestCreateDonationDuplicateTrackingCode(t *testing.T) {
	exec := &stubExecutor{execErr: &pgconn.PgError{Code: "23505", ConstraintName: "donations_tracking_code_key"}}
	repo := NewDonationRepository(exec)

	err := repo.Create(context.Background(), &domain.Donation{ID: "d1", TrackingCode: "DON-20260101-00001"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreateRegistrationDuplicatePair(t *testing.T) {
	exec := &stubExecutor{execErr: &pgconn.PgError{Code: "23505", ConstraintName: registrationPairConstraint}}
	repo := NewVolunteerRepository(exec)

	err := repo.Create(context.Background(), &domain.Registration{ID: "r1", ProjectID: "p1", VolunteerID: "u1"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegistrationPairExists(t *testing.T) {
	exec := &stubExecutor{rows: map[string]stubRow{
		sqlinline.QRegistrationPairExists: {values: []any{true}},
	}}
	repo := NewVolunteerRepository(exec)

	exists, err := repo.PairExists(context.Background(), "p1", "u1")
	if err != nil {
		t.Fatalf("PairExists error: %v", err)
	}
	if !exists {
		t.Fatalf("expected pair to exist")
	}
	call := exec.rowCalls[0]
	if call.args[0] != "p1" || call.args[1] != "u1" {
		t.Fatalf("unexpected args %#v", call.args)
	}
}

func TestTransitionDonationLostRace(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		want   error
	}{
		{name: "row gone", exists: false, want: domain.ErrNotFound},
		{name: "status changed", exists: true, want: domain.ErrConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exec := &stubExecutor{rows: map[string]stubRow{
				sqlinline.QDonationExists: {values: []any{tc.exists}},
			}}
			repo := NewDonationRepository(exec)
			_, err := repo.Transition(context.Background(), domain.DonationTransition{
				ID:   "d1",
				From: []domain.DonationStatus{domain.DonationPending},
				To:   domain.DonationCompleted,
				At:   time.Now(),
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got := exec.rowCalls[0].args[1].([]string); len(got) != 1 || got[0] != "pending" {
				t.Fatalf("expected status guard [pending], got %#v", got)
			}
		})
	}
}

func TestTransitionDonationGuardsAuthority(t *testing.T) {
	exec := &stubExecutor{rows: map[string]stubRow{
		sqlinline.QDonationExists: {values: []any{true}},
	}}
	repo := NewDonationRepository(exec)
	_, err := repo.Transition(context.Background(), domain.DonationTransition{
		ID:          "d1",
		From:        []domain.DonationStatus{domain.DonationPending},
		IfAuthority: "AUTH-1",
		To:          domain.DonationCompleted,
		At:          time.Now(),
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if !strings.Contains(exec.rowCalls[0].query, "authority = $16::text") {
		t.Fatalf("authority guard must be part of the update")
	}
	if got := exec.rowCalls[0].args[15]; got != "AUTH-1" {
		t.Fatalf("expected authority guard arg, got %#v", got)
	}
}

func TestDeleteDonationGuardsStatus(t *testing.T) {
	exec := &stubExecutor{
		execTag: pgconn.NewCommandTag("DELETE 0"),
		rows:    map[string]stubRow{sqlinline.QDonationExists: {values: []any{true}}},
	}
	repo := NewDonationRepository(exec)

	err := repo.Delete(context.Background(), "d1", []domain.DonationStatus{domain.DonationPending, domain.DonationFailed})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := exec.execs[0].args[1].([]string); len(got) != 2 || got[1] != "failed" {
		t.Fatalf("unexpected allowed statuses %#v", got)
	}
}

func TestSetCertificateOnlyOnce(t *testing.T) {
	exec := &stubExecutor{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := NewDonationRepository(exec)

	applied, err := repo.SetCertificate(context.Background(), "d1", "https://cdn/x.html", time.Now())
	if err != nil {
		t.Fatalf("SetCertificate error: %v", err)
	}
	if applied {
		t.Fatalf("expected second write to be skipped")
	}
}

func TestClaimCertificateJobEmptyQueue(t *testing.T) {
	repo := NewCertificateJobRepository(&stubExecutor{})
	if _, err := repo.Claim(context.Background(), time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrackingSequenceFormatsDay(t *testing.T) {
	exec := &stubExecutor{rows: map[string]stubRow{
		sqlinline.QNextTrackingSequence: {values: []any{int64(7)}},
	}}
	seq := NewTrackingSequence(exec)
	n, err := seq.Next(context.Background(), time.Date(2026, 5, 2, 23, 30, 0, 0, time.FixedZone("WIB", 7*3600)))
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if n != 7 {
		t.Fatalf("Next() = %d", n)
	}
	if got := exec.rowCalls[0].args[0]; got != "2026-05-02" {
		t.Fatalf("expected UTC day, got %v", got)
	}
}

func TestMapErrWrapsDriverErrors(t *testing.T) {
	err := mapErr("select project", errors.New("conn reset"))
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if mapErr("x", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}
