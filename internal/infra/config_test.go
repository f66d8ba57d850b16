package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaultStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:8080/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
	if cfg.PaymentGateway != "sandbox" {
		t.Fatalf("PaymentGateway = %q, want sandbox", cfg.PaymentGateway)
	}
	if cfg.DefaultCurrency != "IDR" {
		t.Fatalf("DefaultCurrency = %q, want IDR", cfg.DefaultCurrency)
	}
}

func TestLoadConfigInheritsPortInCallbackURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "1919")
	t.Setenv("PAYMENT_CALLBACK_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/v1/payments/callback"
	if cfg.PaymentCallbackURL != expected {
		t.Fatalf("PaymentCallbackURL mismatch: got %q want %q", cfg.PaymentCallbackURL, expected)
	}
}

func TestLoadConfigMemoryDriverSkipsDatabaseURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database url", env: map[string]string{"STORE_DRIVER": "postgres", "DATABASE_URL": "", "JWT_SECRET": "x"}},
		{name: "missing jwt secret", env: map[string]string{"DATABASE_URL": "postgres://example", "JWT_SECRET": ""}},
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "mongo", "JWT_SECRET": "x"}},
		{name: "s3 without bucket", env: map[string]string{"DATABASE_URL": "postgres://example", "JWT_SECRET": "x", "STORAGE_DRIVER": "s3", "S3_BUCKET": ""}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadConfigParsesListsAndDurations(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092 ")
	t.Setenv("CERT_POLL_INTERVAL", "750ms")
	t.Setenv("CERT_WORKER_INLINE", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Fatalf("KafkaBrokers mismatch: %#v", cfg.KafkaBrokers)
	}
	if cfg.CertPollInterval != 750*time.Millisecond {
		t.Fatalf("CertPollInterval = %s", cfg.CertPollInterval)
	}
	if !cfg.CertWorkerInline {
		t.Fatalf("CertWorkerInline not parsed")
	}
}

func TestLoadConfigTraceExporter(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    string
		wantErr bool
	}{
		{name: "development prints spans", env: map[string]string{"APP_ENV": "development"}, want: "stdout"},
		{name: "production without collector", env: map[string]string{"APP_ENV": "production"}, want: "none"},
		{name: "collector endpoint", env: map[string]string{"APP_ENV": "production", "OTEL_EXPORTER_OTLP_ENDPOINT": "http://collector:4318"}, want: "otlp"},
		{name: "explicit override", env: map[string]string{"APP_ENV": "development", "TRACE_EXPORTER": "NONE"}, want: "none"},
		{name: "otlp without endpoint", env: map[string]string{"TRACE_EXPORTER": "otlp"}, wantErr: true},
		{name: "unknown exporter", env: map[string]string{"TRACE_EXPORTER": "zipkin"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://example")
			t.Setenv("JWT_SECRET", "test-secret")
			t.Setenv("TRACE_EXPORTER", "")
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig returned error: %v", err)
			}
			if cfg.TraceExporter != tc.want {
				t.Fatalf("TraceExporter = %q, want %q", cfg.TraceExporter, tc.want)
			}
			if cfg.TraceSampleRatio != 1 {
				t.Fatalf("TraceSampleRatio = %v, want 1", cfg.TraceSampleRatio)
			}
		})
	}
}
