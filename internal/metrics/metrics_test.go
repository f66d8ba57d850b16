package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLifecycleCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.DonationTransition("completed")
	m.DonationTransition("completed")
	m.PaymentCallback("duplicate")
	m.AggregateFailure()

	if got := testutil.ToFloat64(m.DonationTransitions.WithLabelValues("completed")); got != 2 {
		t.Fatalf("donation transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PaymentCallbacks.WithLabelValues("duplicate")); got != 1 {
		t.Fatalf("callbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AggregateUpdateFailures); got != 1 {
		t.Fatalf("aggregate failures = %v, want 1", got)
	}
}

func TestNilLifecycleIsNoop(t *testing.T) {
	var m *Lifecycle
	m.DonationTransition("verified")
	m.VolunteerTransition("approved")
	m.PaymentCallback("completed")
	m.CertificateJob("succeeded")
	m.AggregateFailure()
}
