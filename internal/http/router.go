package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"charity/internal/domain"
	"charity/internal/http/handlers"
	"charity/internal/middleware"
)

// Config carries the router's cross-cutting settings.
type Config struct {
	JWTSecret       string
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// StaticDir serves stored receipts and certificates under /static when set.
	StaticDir string
	Logger    zerolog.Logger
}

func NewRouter(app *handlers.App, cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Tracing("charity-api"),
		middleware.RequestID,
		middleware.Logger(cfg.Logger),
		chimw.Recoverer,
		middleware.CORS(cfg.CORSOrigins),
		middleware.I18N(cfg.DefaultLocale, cfg.CountryLookup),
	)

	r.Get("/healthz", app.Health)
	r.Get("/readyz", app.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))

		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		// Gateways call these without user credentials.
		r.Get("/payments/callback", app.PaymentCallback)
		r.Post("/payments/callback", app.PaymentCallback)
		r.Post("/payments/midtrans/notification", app.MidtransNotification)

		r.Get("/projects/{projectID}/donors", app.ProjectDonors)
		r.Get("/projects/{projectID}/stats", app.ProjectStats)
		r.Get("/donations/track/{code}", app.DonationTrack)

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWTSecret))
			r.Post("/projects/{projectID}/donations", app.DonationsCreate)
			r.Post("/donations/{id}/payment", app.DonationInitiatePayment)
			r.Post("/donations/{id}/receipt", app.DonationUploadReceipt)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(cfg.JWTSecret))
			r.Post("/projects/{projectID}/volunteers", app.VolunteersRegister)
			r.Get("/volunteers/{id}", app.VolunteerGet)
			r.Post("/volunteers/{id}/withdraw", app.VolunteerWithdraw)
			r.Post("/volunteers/{id}/activity", app.VolunteerActivity)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AuthJWT(cfg.JWTSecret), middleware.RequireRole(domain.RoleAdmin))

			r.Get("/projects/{projectID}/donations", app.AdminProjectDonations)
			r.Get("/donations/{id}", app.AdminDonationGet)
			r.Delete("/donations/{id}", app.AdminDonationDelete)
			r.Post("/donations/{id}/verify", app.AdminDonationVerify)
			r.Post("/donations/{id}/refund", app.AdminDonationRefund)

			r.Get("/projects/{projectID}/volunteers", app.AdminProjectVolunteers)
			r.Delete("/volunteers/{id}", app.AdminVolunteerDelete)
			r.Post("/volunteers/{id}/review", app.AdminVolunteerReview)
			r.Post("/volunteers/{id}/activate", app.AdminVolunteerActivate)
			r.Post("/volunteers/{id}/complete", app.AdminVolunteerComplete)
			r.Post("/volunteers/{id}/suspend", app.AdminVolunteerSuspend)
		})
	})

	return r
}
