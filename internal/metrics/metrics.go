// Package metrics exposes Prometheus collectors for the donation and volunteer
// lifecycles. A nil *Lifecycle is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lifecycle groups the lifecycle counters.
type Lifecycle struct {
	DonationTransitions     *prometheus.CounterVec
	VolunteerTransitions    *prometheus.CounterVec
	PaymentCallbacks        *prometheus.CounterVec
	CertificateJobs         *prometheus.CounterVec
	AggregateUpdateFailures prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Lifecycle {
	f := promauto.With(reg)
	return &Lifecycle{
		DonationTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "charity_donation_transitions_total",
			Help: "Donation status transitions by target status",
		}, []string{"to"}),
		VolunteerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "charity_volunteer_transitions_total",
			Help: "Volunteer registration transitions by target status",
		}, []string{"to"}),
		PaymentCallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "charity_payment_callbacks_total",
			Help: "Payment callbacks by outcome",
		}, []string{"outcome"}),
		CertificateJobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "charity_certificate_jobs_total",
			Help: "Certificate job attempts by outcome",
		}, []string{"outcome"}),
		AggregateUpdateFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "charity_aggregate_update_failures_total",
			Help: "Project counter updates that failed after a committed transition",
		}),
	}
}

func (m *Lifecycle) DonationTransition(to string) {
	if m == nil {
		return
	}
	m.DonationTransitions.WithLabelValues(to).Inc()
}

func (m *Lifecycle) VolunteerTransition(to string) {
	if m == nil {
		return
	}
	m.VolunteerTransitions.WithLabelValues(to).Inc()
}

// PaymentCallback records a callback outcome: completed, failed, duplicate, pending or error.
func (m *Lifecycle) PaymentCallback(outcome string) {
	if m == nil {
		return
	}
	m.PaymentCallbacks.WithLabelValues(outcome).Inc()
}

// CertificateJob records a job attempt outcome: succeeded, retry, failed or skipped.
func (m *Lifecycle) CertificateJob(outcome string) {
	if m == nil {
		return
	}
	m.CertificateJobs.WithLabelValues(outcome).Inc()
}

func (m *Lifecycle) AggregateFailure() {
	if m == nil {
		return
	}
	m.AggregateUpdateFailures.Inc()
}
