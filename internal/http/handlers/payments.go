package handlers

import (
	"errors"
	"net/http"

	"charity/internal/domain"
	"charity/internal/donation"
	"charity/internal/payment"
)

type callbackResponse struct {
	TrackingCode string                `json:"tracking_code"`
	Status       domain.DonationStatus `json:"status"`
	ReferenceID  string                `json:"reference_id,omitempty"`
}

// PaymentCallback handles the gateway redirect: Authority and Status come from
// the query string or a form body; code optionally names the tracking code.
func (a *App) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	cb := donation.Callback{
		Authority:    r.FormValue("Authority"),
		Status:       payment.ParseCallbackStatus(r.FormValue("Status")),
		TrackingCode: r.FormValue("code"),
	}
	d, err := a.Donations.ConfirmPayment(r.Context(), cb)
	if err != nil {
		if errors.Is(err, domain.ErrGateway) {
			a.error(w, http.StatusPaymentRequired, "gateway_error", err.Error())
			return
		}
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, callbackResponse{TrackingCode: d.TrackingCode, Status: d.Status, ReferenceID: d.ReferenceID})
}

// MidtransNotification handles server-to-server notifications. Handled and
// unknown orders answer 200; only internal failures answer 5xx so the gateway
// retries them.
func (a *App) MidtransNotification(w http.ResponseWriter, r *http.Request) {
	if a.NotificationKey == "" {
		a.error(w, http.StatusNotFound, "not_found", "notifications are not enabled")
		return
	}
	var n payment.Notification
	if !a.decode(w, r, &n) {
		return
	}
	if !n.VerifySignature(a.NotificationKey) {
		a.error(w, http.StatusForbidden, "forbidden", "invalid signature")
		return
	}
	d, err := a.Donations.ConfirmPayment(r.Context(), donation.Callback{
		Authority:     n.OrderID,
		Status:        n.Status(),
		TransactionID: n.TransactionID,
	})
	switch {
	case err == nil:
		a.json(w, http.StatusOK, callbackResponse{TrackingCode: d.TrackingCode, Status: d.Status, ReferenceID: d.ReferenceID})
	case errors.Is(err, domain.ErrNotFound):
		a.Logger.Warn().Str("order_id", n.OrderID).Msg("notification for unknown order")
		a.json(w, http.StatusOK, map[string]string{"status": "ignored"})
	case errors.Is(err, domain.ErrGateway):
		a.json(w, http.StatusOK, map[string]string{"status": string(domain.DonationFailed)})
	case domain.Kind(err) == "internal":
		a.fail(w, r, err)
	default:
		a.error(w, http.StatusOK, domain.Kind(err), err.Error())
	}
}
