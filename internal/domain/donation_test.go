package domain

import (
	"errors"
	"testing"
	"time"
)

func TestDonationStatusTransitions(t *testing.T) {
	tests := []struct {
		from DonationStatus
		to   DonationStatus
		want bool
	}{
		{DonationPending, DonationCompleted, true},
		{DonationPending, DonationVerified, true},
		{DonationPending, DonationRejected, true},
		{DonationFailed, DonationPending, true},
		{DonationCompleted, DonationRefunded, true},
		{DonationVerified, DonationRefunded, true},
		{DonationCompleted, DonationCompleted, false},
		{DonationRejected, DonationVerified, false},
		{DonationRefunded, DonationCompleted, false},
		{DonationFailed, DonationCompleted, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := tc.from.CanTransition(tc.to); got != tc.want {
				t.Fatalf("CanTransition() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDonationStatusDeletable(t *testing.T) {
	deletable := map[DonationStatus]bool{
		DonationPending:   true,
		DonationFailed:    true,
		DonationCompleted: false,
		DonationVerified:  false,
		DonationRejected:  false,
		DonationRefunded:  false,
	}
	for status, want := range deletable {
		if got := status.Deletable(); got != want {
			t.Fatalf("%s.Deletable() = %v, want %v", status, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	d := &Donation{Donor: DonorSnapshot{Name: "Rina", IsAnonymous: true}}
	if got := d.DisplayName(); got != "Anonymous" {
		t.Fatalf("anonymous donor shown as %q", got)
	}
	d.Donor.IsAnonymous = false
	if got := d.DisplayName(); got != "Rina" {
		t.Fatalf("DisplayName() = %q", got)
	}
}

func TestTrackingCode(t *testing.T) {
	day := time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC)
	code, err := FormatTrackingCode(day, 42)
	if err != nil || code != "DON-20260307-00042" {
		t.Fatalf("FormatTrackingCode() = %q, %v", code, err)
	}
	if last, err := FormatTrackingCode(day, MaxDailyTrackingSeq); err != nil || last != "DON-20260307-99999" {
		t.Fatalf("FormatTrackingCode(max) = %q, %v", last, err)
	}
	for _, seq := range []int64{0, MaxDailyTrackingSeq + 1} {
		if _, err := FormatTrackingCode(day, seq); !errors.Is(err, ErrTrackingExhausted) {
			t.Fatalf("FormatTrackingCode(%d) error = %v, want ErrTrackingExhausted", seq, err)
		}
	}
	if !ValidTrackingCode(code) {
		t.Fatalf("expected %q to be valid", code)
	}
	for _, bad := range []string{"DON-2026037-00042", "DON-20261340-00001", "don-20260307-00001", "DON-20260307-1", "DON-20260307-100000"} {
		if ValidTrackingCode(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestKind(t *testing.T) {
	if got := Kind(ErrCapacityReached); got != "invalid_state" {
		t.Fatalf("Kind(ErrCapacityReached) = %q", got)
	}
	if got := Kind(Validationf("amount %d too small", 1)); got != "validation_error" {
		t.Fatalf("Kind(validation) = %q", got)
	}
	if got := Kind(errors.New("boom")); got != "internal" {
		t.Fatalf("Kind(unknown) = %q", got)
	}
	wrapped := Internal("load donation", errors.New("connection reset"))
	if !errors.Is(wrapped, ErrInternal) {
		t.Fatalf("expected internal kind, got %v", wrapped)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	got, err := NormalizeCurrency("idr")
	if err != nil || got != "IDR" {
		t.Fatalf("NormalizeCurrency(idr) = %q, %v", got, err)
	}
	if _, err := NormalizeCurrency("JPY"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected JPY to be rejected, got %v", err)
	}
	if _, err := NormalizeCurrency("XXZ"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected unknown code to be rejected, got %v", err)
	}
	if MinorUnitDigits("IDR") != 0 || MinorUnitDigits("usd") != 2 {
		t.Fatal("unexpected minor unit digits")
	}
}
