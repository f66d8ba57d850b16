package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"charity/internal/domain"
)

// Midtrans initiates payments with Snap and verifies them with the Core API
// transaction status endpoint. The order id doubles as the authority.
type Midtrans struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
}

// NewMidtrans builds a gateway for the given server key.
func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{serverKey: serverKey}
	m.snap.New(serverKey, env)
	m.core.New(serverKey, env)
	return m
}

func (m *Midtrans) Name() string { return "midtrans" }

func (m *Midtrans) Initiate(ctx context.Context, req Request) (Initiation, error) {
	_, span := tracer.Start(ctx, "midtrans.initiate")
	defer span.End()

	orderID := req.Reference + "-" + uuid.NewString()[:8]
	span.SetAttributes(attribute.String("payment.order_id", orderID), attribute.Int64("payment.amount", req.Amount))

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Contact.Name,
			Email: req.Contact.Email,
			Phone: req.Contact.Phone,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    req.Reference,
			Name:  truncate(req.Description, 50),
			Price: req.Amount,
			Qty:   1,
		}},
	}
	resp, merr := m.snap.CreateTransaction(snapReq)
	if merr != nil {
		span.RecordError(merr)
		span.SetStatus(codes.Error, "create transaction")
		return Initiation{}, fmt.Errorf("%w: midtrans create transaction: %s", domain.ErrGateway, merr.GetMessage())
	}
	if resp == nil || resp.Token == "" {
		span.SetStatus(codes.Error, "empty token")
		return Initiation{}, fmt.Errorf("%w: midtrans returned no token", domain.ErrGateway)
	}
	return Initiation{Authority: orderID, RedirectURL: resp.RedirectURL}, nil
}

func (m *Midtrans) Verify(ctx context.Context, authority string, amount int64) (string, error) {
	_, span := tracer.Start(ctx, "midtrans.verify")
	defer span.End()
	span.SetAttributes(attribute.String("payment.order_id", authority))

	status, merr := m.core.CheckTransaction(authority)
	if merr != nil {
		span.RecordError(merr)
		span.SetStatus(codes.Error, "check transaction")
		return "", fmt.Errorf("%w: midtrans status: %s", domain.ErrGateway, merr.GetMessage())
	}
	if status == nil {
		return "", fmt.Errorf("%w: midtrans returned no status", domain.ErrGateway)
	}
	if MapTransactionStatus(status.TransactionStatus, status.FraudStatus) != CallbackSuccess {
		span.SetStatus(codes.Error, "not settled")
		return "", fmt.Errorf("%w: transaction status %s", domain.ErrGateway, status.TransactionStatus)
	}
	gross, err := parseGrossAmount(status.GrossAmount)
	if err != nil || gross != amount {
		span.SetStatus(codes.Error, "amount mismatch")
		return "", fmt.Errorf("%w: gross amount %q does not match", domain.ErrGateway, status.GrossAmount)
	}
	return status.TransactionID, nil
}

// MapTransactionStatus normalizes a Midtrans transaction status and fraud status.
func MapTransactionStatus(transactionStatus, fraudStatus string) CallbackStatus {
	switch transactionStatus {
	case "capture":
		switch fraudStatus {
		case "", "accept":
			return CallbackSuccess
		case "challenge":
			return CallbackPending
		}
		return CallbackFailed
	case "settlement":
		return CallbackSuccess
	case "pending", "authorize":
		return CallbackPending
	default:
		return CallbackFailed
	}
}

// Notification is the HTTP notification body Midtrans posts on status changes.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
}

// Signature computes sha512(order_id + status_code + gross_amount + server_key).
func (n Notification) Signature(serverKey string) string {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature reports whether the notification was signed with serverKey.
func (n Notification) VerifySignature(serverKey string) bool {
	if serverKey == "" || n.SignatureKey == "" {
		return false
	}
	want := n.Signature(serverKey)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(n.SignatureKey)), []byte(want)) == 1
}

// Status returns the normalized callback status of the notification.
func (n Notification) Status() CallbackStatus {
	return MapTransactionStatus(n.TransactionStatus, n.FraudStatus)
}

// ServerKey exposes the key used to check notification signatures.
func (m *Midtrans) ServerKey() string { return m.serverKey }

func parseGrossAmount(raw string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(f)), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ Gateway = (*Midtrans)(nil)
