package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	StoreDriver      string
	DatabaseURL      string
	JWTSecret        string
	CORSOrigins      []string
	GeoIPDBPath      string
	DefaultCurrency  string
	DefaultLocale    string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	TraceExporter    string
	OTLPEndpoint     string
	TraceSampleRatio float64

	StorageDriver      string
	StoragePath        string
	StorageBaseURL     string
	PublicBaseURL      string
	S3Bucket           string
	S3Region           string
	S3AccessKeyID      string
	S3SecretAccessKey  string
	S3Endpoint         string
	PaymentGateway     string
	PaymentCallbackURL string
	MidtransServerKey  string
	MidtransProduction bool

	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	CertWorkerInline bool
	CertMaxAttempts  int
	CertPollInterval time.Duration
	CertBackoffBase  time.Duration
	CertBackoffMax   time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             port,
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CORSOrigins:      getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		DefaultCurrency:  strings.ToUpper(getEnv("DEFAULT_CURRENCY", "IDR")),
		DefaultLocale:    strings.ToLower(getEnv("DEFAULT_LOCALE", "id")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceSampleRatio: getEnvFloat("TRACE_SAMPLE_RATIO", 1),

		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", "fs")),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		PublicBaseURL:      os.Getenv("PUBLIC_BASE_URL"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3Region:           getEnv("S3_REGION", "ap-southeast-1"),
		S3AccessKeyID:      os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:  os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		PaymentGateway:     strings.ToLower(getEnv("PAYMENT_GATEWAY", "sandbox")),
		PaymentCallbackURL: getEnv("PAYMENT_CALLBACK_URL", "http://localhost:"+port+"/v1/payments/callback"),
		MidtransServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransProduction: getEnvBool("MIDTRANS_PRODUCTION", false),

		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: getEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "charity.lifecycle"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@localhost"),

		CertWorkerInline: getEnvBool("CERT_WORKER_INLINE", false),
		CertMaxAttempts:  getEnvInt("CERT_MAX_ATTEMPTS", 5),
		CertPollInterval: getEnvDuration("CERT_POLL_INTERVAL", 2*time.Second),
		CertBackoffBase:  getEnvDuration("CERT_BACKOFF_BASE", 30*time.Second),
		CertBackoffMax:   getEnvDuration("CERT_BACKOFF_MAX", 30*time.Minute),
	}

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	cfg.TraceExporter = strings.ToLower(getEnv("TRACE_EXPORTER", defaultTraceExporter(cfg)))
	switch cfg.TraceExporter {
	case "none", "stdout":
	case "otlp":
		if cfg.OTLPEndpoint == "" {
			return nil, fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when TRACE_EXPORTER=otlp")
		}
	default:
		return nil, fmt.Errorf("unsupported TRACE_EXPORTER %q", cfg.TraceExporter)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.StorageDriver == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
	}

	return cfg, nil
}

// defaultTraceExporter ships spans to a collector when one is configured and
// prints them in development.
func defaultTraceExporter(cfg *Config) string {
	switch {
	case cfg.OTLPEndpoint != "":
		return "otlp"
	case cfg.AppEnv == "development":
		return "stdout"
	default:
		return "none"
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
