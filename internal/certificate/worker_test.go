package certificate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/text/language"

	"charity/internal/adapter/memstore"
	"charity/internal/domain"
	"charity/internal/metrics"
)

type fakeIssuer struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *fakeIssuer) IssueDonationCertificate(ctx context.Context, d domain.Donation, p domain.Project) (string, error) {
	return f.issue("donations/" + d.ID)
}

func (f *fakeIssuer) IssueVolunteerCertificate(ctx context.Context, r domain.Registration, p domain.Project) (string, error) {
	return f.issue("volunteers/" + r.ID)
}

func (f *fakeIssuer) issue(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return "", fmt.Errorf("%w: renderer offline", domain.ErrRender)
	}
	return "https://cdn.example/" + key + ".html", nil
}

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sent = append(m.sent, to)
	return nil
}

type WorkerSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memstore.Store
	issuer  *fakeIssuer
	mailer  *fakeMailer
	metrics *metrics.Lifecycle
	worker  *Worker
	queue   *Queue
	clock   time.Time
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memstore.New()
	s.issuer = &fakeIssuer{}
	s.mailer = &fakeMailer{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.clock = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	s.store.Projects().Seed(domain.Project{ID: "p1", Title: "School Library"})

	s.worker = NewWorker(WorkerDeps{
		Jobs:       s.store.CertificateJobs(),
		Donations:  s.store.Donations(),
		Volunteers: s.store.Volunteers(),
		Projects:   s.store.Projects(),
		Issuer:     s.issuer,
		Mailer:     s.mailer,
		Metrics:    s.metrics,
		Logger:     zerolog.Nop(),
	}, WorkerConfig{MaxAttempts: 3, BackoffBase: time.Minute, BackoffMax: 10 * time.Minute})
	s.worker.now = func() time.Time { return s.clock }
	s.queue = NewQueue(s.store.CertificateJobs())
	s.queue.now = func() time.Time { return s.clock }
}

func (s *WorkerSuite) seedDonation(status domain.DonationStatus) *domain.Donation {
	d := &domain.Donation{
		ID: "d1", TrackingCode: "DON-20260401-00001", ProjectID: "p1", Amount: 50000, Currency: "IDR",
		PaymentMethod: domain.PaymentOnline, Status: status,
		Donor:     domain.DonorSnapshot{Name: "Sari", Email: "sari@example.com"},
		CreatedAt: s.clock,
	}
	s.Require().NoError(s.store.Donations().Create(s.ctx, d))
	return d
}

func (s *WorkerSuite) TestIssuesDonationCertificateOnce() {
	d := s.seedDonation(domain.DonationCompleted)
	s.Require().NoError(s.queue.Enqueue(s.ctx, domain.SubjectDonation, d.ID))
	s.Require().NoError(s.queue.Enqueue(s.ctx, domain.SubjectDonation, d.ID))

	worked, err := s.worker.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.True(worked)

	worked, err = s.worker.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.False(worked)

	got, err := s.store.Donations().GetByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.True(got.Certificate.Generated)
	s.Equal("https://cdn.example/donations/d1.html", got.Certificate.URL)
	s.Equal(1, s.issuer.calls)
	s.Equal([]string{"sari@example.com"}, s.mailer.sent)
	s.Equal(domain.CertificateJobSucceeded, s.store.CertificateJobs().Jobs()[0].Status)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.CertificateJobs.WithLabelValues("succeeded")))
}

func (s *WorkerSuite) TestRetriesWithBackoffThenFails() {
	d := s.seedDonation(domain.DonationVerified)
	s.issuer.failures = 10
	s.Require().NoError(s.queue.Enqueue(s.ctx, domain.SubjectDonation, d.ID))

	worked, err := s.worker.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.True(worked)
	job := s.store.CertificateJobs().Jobs()[0]
	s.Equal(domain.CertificateJobQueued, job.Status)
	s.Equal(s.clock.Add(time.Minute), job.NextAttemptAt)
	s.Contains(job.LastError, "renderer offline")

	worked, _ = s.worker.RunOnce(s.ctx)
	s.False(worked, "job must wait for its next attempt")

	s.clock = s.clock.Add(time.Minute)
	_, _ = s.worker.RunOnce(s.ctx)
	job = s.store.CertificateJobs().Jobs()[0]
	s.Equal(s.clock.Add(2*time.Minute), job.NextAttemptAt)

	s.clock = s.clock.Add(2 * time.Minute)
	_, _ = s.worker.RunOnce(s.ctx)
	job = s.store.CertificateJobs().Jobs()[0]
	s.Equal(domain.CertificateJobFailed, job.Status)
	s.Equal(3, job.Attempts)

	got, err := s.store.Donations().GetByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(domain.DonationVerified, got.Status, "certificate failure never touches the donation status")
	s.False(got.Certificate.Generated)
	s.Empty(s.mailer.sent)
}

func (s *WorkerSuite) TestRecordsJobSpans() {
	recorder := tracetest.NewSpanRecorder()
	s.worker.tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	d := s.seedDonation(domain.DonationCompleted)
	s.issuer.failures = 1
	s.Require().NoError(s.queue.Enqueue(s.ctx, domain.SubjectDonation, d.ID))
	_, err := s.worker.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.clock = s.clock.Add(time.Minute)
	_, err = s.worker.RunOnce(s.ctx)
	s.Require().NoError(err)

	spans := recorder.Ended()
	s.Require().Len(spans, 2)
	s.Equal("certificate.job", spans[0].Name())
	s.Equal(codes.Error, spans[0].Status().Code)
	s.Len(spans[0].Events(), 1, "the issuer error is recorded on the span")
	s.Equal(codes.Unset, spans[1].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	s.Equal("donation", attrs["certificate.subject"])
	s.Equal(d.ID, attrs["certificate.subject_id"])
	s.Equal("succeeded", attrs["certificate.outcome"])
}

func (s *WorkerSuite) TestSkipsDonationThatIsNoLongerSuccessful() {
	d := s.seedDonation(domain.DonationRefunded)
	s.Require().NoError(s.queue.Enqueue(s.ctx, domain.SubjectDonation, d.ID))

	_, err := s.worker.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, s.issuer.calls)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.CertificateJobs.WithLabelValues("skipped")))
}

func (s *WorkerSuite) TestIssuesVolunteerCertificate() {
	reg := &domain.Registration{
		ID: "r1", ProjectID: "p1", VolunteerID: "u1", Status: domain.VolunteerCompleted,
		HoursContributed: 12, TasksCompleted: 3, CreatedAt: s.clock,
	}
	s.Require().NoError(s.store.Volunteers().Create(s.ctx, reg))
	s.Require().NoError(s.queue.Enqueue(s.ctx, domain.SubjectVolunteer, reg.ID))

	_, err := s.worker.RunOnce(s.ctx)
	s.Require().NoError(err)

	got, err := s.store.Volunteers().GetByID(s.ctx, reg.ID)
	s.Require().NoError(err)
	s.True(got.Certificate.Generated)
	s.Equal("https://cdn.example/volunteers/r1.html", got.Certificate.URL)
}

func (s *WorkerSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	err := s.worker.Run(ctx)
	s.Require().True(errors.Is(err, context.Canceled))
}

type memObjects struct {
	objects map[string][]byte
}

func (m *memObjects) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.objects[key] = data
	return "https://files.example/" + key, nil
}

func TestHTMLIssuerRendersDonation(t *testing.T) {
	store := &memObjects{objects: map[string][]byte{}}
	issuer := NewHTMLIssuer(store, language.Indonesian)
	d := domain.Donation{
		ID: "d9", TrackingCode: "DON-20260401-00009", Amount: 100000, Currency: "IDR",
		Donor: domain.DonorSnapshot{Name: "Budi", IsAnonymous: true},
	}

	url, err := issuer.IssueDonationCertificate(context.Background(), d, domain.Project{Title: "Clean <Water>"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if url != "https://files.example/certificates/donations/d9.html" {
		t.Fatalf("url = %q", url)
	}
	html := string(store.objects["certificates/donations/d9.html"])
	if strings.Contains(html, "Budi") || !strings.Contains(html, "Anonymous") {
		t.Fatalf("anonymous donor leaked: %s", html)
	}
	if !strings.Contains(html, "Clean &lt;Water&gt;") {
		t.Fatalf("project title not escaped: %s", html)
	}
	if !strings.Contains(html, "DON-20260401-00009") {
		t.Fatalf("tracking code missing: %s", html)
	}
}

func TestFormatAmountUsesMinorUnits(t *testing.T) {
	idr := FormatAmount(language.English, "IDR", 100000)
	if !strings.Contains(idr, "100,000") {
		t.Fatalf("IDR amount = %q", idr)
	}
	usd := FormatAmount(language.English, "USD", 1250)
	if !strings.Contains(usd, "12.50") {
		t.Fatalf("USD amount = %q", usd)
	}
}

func TestHTMLIssuerUsesDonorLocale(t *testing.T) {
	store := &memObjects{objects: map[string][]byte{}}
	issuer := NewHTMLIssuer(store, language.English)
	d := domain.Donation{
		ID: "d10", TrackingCode: "DON-20260401-00010", Amount: 2500000, Currency: "IDR",
		Donor: domain.DonorSnapshot{Name: "Sari", Locale: "id"},
	}
	if _, err := issuer.IssueDonationCertificate(context.Background(), d, domain.Project{Title: "Library"}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	html := string(store.objects["certificates/donations/d10.html"])
	if !strings.Contains(html, "2.500.000") {
		t.Fatalf("amount not grouped for id locale: %s", html)
	}

	d.ID, d.Donor.Locale = "d11", "not a locale!"
	if _, err := issuer.IssueDonationCertificate(context.Background(), d, domain.Project{Title: "Library"}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if html := string(store.objects["certificates/donations/d11.html"]); !strings.Contains(html, "2,500,000") {
		t.Fatalf("invalid locale should fall back to the issuer default: %s", html)
	}
}
