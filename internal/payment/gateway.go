// Package payment holds the payment verification gateways and the parsing of
// their asynchronous callbacks.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("charity/payment")

// Contact is the donor information forwarded to the gateway.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Request describes a payment to initiate. Amount is passed unchanged from the
// stored donation.
type Request struct {
	Amount      int64
	Currency    string
	Description string
	Reference   string
	Contact     Contact
}

// Initiation is the gateway's answer to a payment request.
type Initiation struct {
	Authority   string
	RedirectURL string
}

// Gateway is an external payment processor. Every non-nil error from Initiate
// or Verify is treated as a failed payment and must wrap domain.ErrGateway.
type Gateway interface {
	Name() string
	Initiate(ctx context.Context, req Request) (Initiation, error)
	Verify(ctx context.Context, authority string, amount int64) (string, error)
}

// CallbackStatus is the normalized status carried by a gateway callback.
type CallbackStatus string

const (
	CallbackSuccess CallbackStatus = "success"
	CallbackFailed  CallbackStatus = "failed"
	CallbackPending CallbackStatus = "pending"
)

// ParseCallbackStatus maps the redirect flag or gateway status string. Anything
// that is not recognised as success or pending counts as a failure.
func ParseCallbackStatus(raw string) CallbackStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ok", "success", "settlement", "capture", "paid":
		return CallbackSuccess
	case "pending":
		return CallbackPending
	default:
		return CallbackFailed
	}
}

// Select builds the gateway named by PAYMENT_GATEWAY.
func Select(name, callbackURL, midtransKey string, production bool) (Gateway, error) {
	switch strings.ToLower(name) {
	case "", "sandbox":
		return NewSandbox(callbackURL), nil
	case "midtrans":
		if strings.TrimSpace(midtransKey) == "" {
			return nil, errors.New("midtrans server key is not configured")
		}
		return NewMidtrans(midtransKey, production), nil
	default:
		return nil, fmt.Errorf("unsupported payment gateway %q", name)
	}
}
