package payment

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"charity/internal/domain"
)

func TestParseCallbackStatus(t *testing.T) {
	tests := map[string]CallbackStatus{
		"OK":         CallbackSuccess,
		"ok":         CallbackSuccess,
		"settlement": CallbackSuccess,
		"NOK":        CallbackFailed,
		"cancel":     CallbackFailed,
		"":           CallbackFailed,
		"pending":    CallbackPending,
	}
	for raw, want := range tests {
		if got := ParseCallbackStatus(raw); got != want {
			t.Errorf("ParseCallbackStatus(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestMapTransactionStatus(t *testing.T) {
	tests := []struct {
		status, fraud string
		want          CallbackStatus
	}{
		{"capture", "accept", CallbackSuccess},
		{"capture", "challenge", CallbackPending},
		{"capture", "deny", CallbackFailed},
		{"settlement", "", CallbackSuccess},
		{"pending", "", CallbackPending},
		{"expire", "", CallbackFailed},
		{"deny", "", CallbackFailed},
	}
	for _, tt := range tests {
		if got := MapTransactionStatus(tt.status, tt.fraud); got != tt.want {
			t.Errorf("MapTransactionStatus(%q, %q) = %s, want %s", tt.status, tt.fraud, got, tt.want)
		}
	}
}

func TestNotificationSignature(t *testing.T) {
	n := Notification{OrderID: "DON-20260101-00001-ab12cd34", StatusCode: "200", GrossAmount: "100000.00"}
	n.SignatureKey = n.Signature("server-key")

	if !n.VerifySignature("server-key") {
		t.Fatal("expected signature to verify")
	}
	if n.VerifySignature("other-key") {
		t.Fatal("expected signature mismatch with another key")
	}
	n.GrossAmount = "1.00"
	if n.VerifySignature("server-key") {
		t.Fatal("expected tampered amount to fail")
	}
}

func TestParseGrossAmount(t *testing.T) {
	got, err := parseGrossAmount("100000.00")
	if err != nil || got != 100000 {
		t.Fatalf("parseGrossAmount = %d, %v", got, err)
	}
	if _, err := parseGrossAmount("abc"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSandboxRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := NewSandbox("http://localhost:8080/v1/payments/callback")

	init, err := gw.Initiate(ctx, Request{Amount: 100000, Reference: "DON-20260101-00001"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if !strings.HasPrefix(init.Authority, "SBX-") {
		t.Fatalf("unexpected authority %q", init.Authority)
	}
	u, err := url.Parse(init.RedirectURL)
	if err != nil {
		t.Fatalf("redirect url: %v", err)
	}
	if u.Query().Get("Authority") != init.Authority || u.Query().Get("Status") != "OK" {
		t.Fatalf("redirect query = %v", u.Query())
	}

	ref, err := gw.Verify(ctx, init.Authority, 100000)
	if err != nil || ref == "" {
		t.Fatalf("verify: %q, %v", ref, err)
	}

	if _, err := gw.Verify(ctx, init.Authority, 1); !errors.Is(err, domain.ErrGateway) {
		t.Fatalf("expected gateway error on amount mismatch, got %v", err)
	}
	if _, err := gw.Verify(ctx, "SBX-unknown", 100000); !errors.Is(err, domain.ErrGateway) {
		t.Fatalf("expected gateway error on unknown authority, got %v", err)
	}
}

func TestSelect(t *testing.T) {
	gw, err := Select("sandbox", "", "", false)
	if err != nil || gw.Name() != "sandbox" {
		t.Fatalf("Select sandbox = %v, %v", gw, err)
	}
	if _, err := Select("midtrans", "", "", false); err == nil {
		t.Fatal("expected missing key error")
	}
	gw, err = Select("midtrans", "", "SB-Mid-server-xyz", false)
	if err != nil || gw.Name() != "midtrans" {
		t.Fatalf("Select midtrans = %v, %v", gw, err)
	}
	if _, err := Select("paypal", "", "", false); err == nil {
		t.Fatal("expected unsupported gateway error")
	}
}
