package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"charity/internal/domain"
	"charity/internal/donation"
	"charity/internal/middleware"
)

func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	var in donation.Intent
	if !a.decode(w, r, &in) {
		return
	}
	in.ProjectID = chi.URLParam(r, "projectID")
	if in.Currency == "" {
		in.Currency = middleware.CurrencyFromContext(r.Context())
	}
	if in.Locale == "" {
		in.Locale = middleware.LocaleFromContext(r.Context())
	}
	d, err := a.Donations.Create(r.Context(), in, middleware.ActorFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toDonationView(d))
}

func (a *App) DonationTrack(w http.ResponseWriter, r *http.Request) {
	d, err := a.Donations.GetByTrackingCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toPublicDonation(d))
}

type paymentResponse struct {
	Donation    donationView `json:"donation"`
	Authority   string       `json:"authority"`
	RedirectURL string       `json:"redirect_url"`
}

func (a *App) DonationInitiatePayment(w http.ResponseWriter, r *http.Request) {
	d, init, err := a.Donations.InitiatePayment(r.Context(), chi.URLParam(r, "id"), middleware.ActorFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, paymentResponse{Donation: toDonationView(d), Authority: init.Authority, RedirectURL: init.RedirectURL})
}

// DonationUploadReceipt accepts a multipart form with a "receipt" file and an optional "note".
func (a *App) DonationUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, donation.MaxReceiptBytes+(1<<20))
	if err := r.ParseMultipartForm(donation.MaxReceiptBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "validation_error", "receipt is too large")
			return
		}
		a.error(w, http.StatusBadRequest, "validation_error", "expected multipart form with a receipt file")
		return
	}
	file, header, err := r.FormFile("receipt")
	if err != nil {
		a.error(w, http.StatusBadRequest, "validation_error", "receipt file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, donation.MaxReceiptBytes+1))
	if err != nil {
		a.fail(w, r, domain.Internal("read receipt", err))
		return
	}
	d, err := a.Donations.UploadReceipt(r.Context(), chi.URLParam(r, "id"), middleware.ActorFromContext(r.Context()), donation.ReceiptUpload{
		Image:    data,
		Filename: header.Filename,
		Note:     r.FormValue("note"),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toDonationView(d))
}

func (a *App) ProjectDonors(w http.ResponseWriter, r *http.Request) {
	donors, err := a.Donations.RecentDonors(r.Context(), chi.URLParam(r, "projectID"), queryInt(r, "limit", 10))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": donors})
}

func (a *App) ProjectStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Donations.ProjectStats(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, stats)
}

func (a *App) AdminDonationGet(w http.ResponseWriter, r *http.Request) {
	d, err := a.Donations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toDonationView(d))
}

func (a *App) AdminProjectDonations(w http.ResponseWriter, r *http.Request) {
	status := domain.DonationStatus(r.URL.Query().Get("status"))
	items, err := a.Donations.ListByProject(r.Context(), chi.URLParam(r, "projectID"), status, queryInt(r, "limit", 50))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]donationView, 0, len(items))
	for i := range items {
		out = append(out, toDonationView(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

// AdminDonationVerify reviews a bank transfer receipt or confirms a cash donation.
func (a *App) AdminDonationVerify(w http.ResponseWriter, r *http.Request) {
	reviewer := a.requireActor(w, r)
	if reviewer == nil {
		return
	}
	var rv donation.Review
	if !a.decode(w, r, &rv) {
		return
	}
	id := chi.URLParam(r, "id")
	current, err := a.Donations.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var d *domain.Donation
	if current.PaymentMethod == domain.PaymentCash {
		if !rv.Approve {
			a.error(w, http.StatusBadRequest, "validation_error", "cash donations can only be confirmed")
			return
		}
		d, err = a.Donations.VerifyCash(r.Context(), id, *reviewer, rv.Notes)
	} else {
		d, err = a.Donations.VerifyBankTransfer(r.Context(), id, *reviewer, rv)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toDonationView(d))
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (a *App) AdminDonationRefund(w http.ResponseWriter, r *http.Request) {
	reviewer := a.requireActor(w, r)
	if reviewer == nil {
		return
	}
	var req notesRequest
	if !a.decode(w, r, &req) {
		return
	}
	d, err := a.Donations.MarkRefunded(r.Context(), chi.URLParam(r, "id"), *reviewer, req.Notes)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toDonationView(d))
}

func (a *App) AdminDonationDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Donations.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
