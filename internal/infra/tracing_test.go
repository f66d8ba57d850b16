package infra

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupTracingExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	cfg := &Config{AppEnv: "test", TraceExporter: "stdout", TraceSampleRatio: 1}
	shutdown, err := setupTracing(context.Background(), cfg, "charity-test", &buf)
	if err != nil {
		t.Fatalf("setupTracing error: %v", err)
	}

	_, span := otel.Tracer("charity/test").Start(context.Background(), "donation.create")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"Name":"donation.create"`) {
		t.Fatalf("expected exported span, got %q", out)
	}
	if !strings.Contains(out, "charity-test") {
		t.Fatalf("expected service name in resource, got %q", out)
	}
}

func TestSetupTracingNoneKeepsGlobalProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	shutdown, err := setupTracing(context.Background(), &Config{TraceExporter: "none"}, "charity-test", nil)
	if err != nil {
		t.Fatalf("setupTracing error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Fatalf("expected the global provider to be left alone")
	}
}

func TestNewSpanExporter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantNil bool
		wantErr bool
	}{
		{name: "none", cfg: Config{TraceExporter: "none"}, wantNil: true},
		{name: "stdout", cfg: Config{TraceExporter: "stdout"}},
		{name: "otlp", cfg: Config{TraceExporter: "otlp", OTLPEndpoint: "http://collector:4318"}},
		{name: "unknown", cfg: Config{TraceExporter: "zipkin"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := newSpanExporter(context.Background(), &tt.cfg, &bytes.Buffer{})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (exp == nil) != tt.wantNil {
				t.Fatalf("exporter = %v, wantNil %v", exp, tt.wantNil)
			}
			if exp != nil {
				_ = exp.Shutdown(context.Background())
			}
		})
	}
}
