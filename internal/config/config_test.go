package config

import (
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	"GRPC_ADDR", "APP_ENV", "LOG_LEVEL",
	"OTP_VALIDITY", "OTP_MAX_ATTEMPTS", "OTP_SWEEP_INTERVAL", "OTP_RETURN_TO_CLIENT", "OTP_ALLOWED_DOMAINS",
	"DELIVERY_CHANNEL", "SMS_LOCAL_API_KEY", "SMS_LOCAL_SENDER", "SMS_LOCAL_BASE_URL",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
	"KAFKA_BROKERS", "TELEMETRY_KAFKA_TOPIC", "KAFKA_GROUP_ID", "LOKI_URL",
}

// clearEnv blanks every key Load reads. Viper treats empty env values as unset, so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.Validity() != 60*time.Second {
		t.Errorf("Validity = %v, want 60s", cfg.Validity())
	}
	if cfg.OTPMaxAttempts != 10 {
		t.Errorf("OTPMaxAttempts = %d, want 10", cfg.OTPMaxAttempts)
	}
	if cfg.SweepInterval() != 0 {
		t.Errorf("SweepInterval = %v, want 0", cfg.SweepInterval())
	}
	if cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should default to false")
	}
	if cfg.DeliveryChannel != "log" {
		t.Errorf("DeliveryChannel = %q, want log", cfg.DeliveryChannel)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.SMTPPort)
	}
	if cfg.ServiceName != "otp-service" {
		t.Errorf("ServiceName = %q, want otp-service", cfg.ServiceName)
	}
	if cfg.TelemetryKafkaTopic != "otp-telemetry" {
		t.Errorf("TelemetryKafkaTopic = %q, want otp-telemetry", cfg.TelemetryKafkaTopic)
	}
	if cfg.KafkaGroupID != "otp-telemetry-worker" {
		t.Errorf("KafkaGroupID = %q, want otp-telemetry-worker", cfg.KafkaGroupID)
	}
	if cfg.LokiURL != "" {
		t.Errorf("LokiURL = %q, want empty", cfg.LokiURL)
	}
	if cfg.AllowedDomains() != nil {
		t.Errorf("AllowedDomains = %v, want nil", cfg.AllowedDomains())
	}
	if cfg.TelemetryKafkaBrokersList() != nil {
		t.Errorf("TelemetryKafkaBrokersList = %v, want nil", cfg.TelemetryKafkaBrokersList())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRPC_ADDR", ":9090")
	t.Setenv("OTP_VALIDITY", "2m")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("OTP_SWEEP_INTERVAL", "5m")
	t.Setenv("OTP_ALLOWED_DOMAINS", "DSO.org.sg, example.com ,")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want :9090", cfg.GRPCAddr)
	}
	if cfg.Validity() != 2*time.Minute {
		t.Errorf("Validity = %v, want 2m", cfg.Validity())
	}
	if cfg.OTPMaxAttempts != 3 {
		t.Errorf("OTPMaxAttempts = %d, want 3", cfg.OTPMaxAttempts)
	}
	if cfg.SweepInterval() != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", cfg.SweepInterval())
	}
	domains := cfg.AllowedDomains()
	if strings.Join(domains, "|") != "dso.org.sg|example.com" {
		t.Errorf("AllowedDomains = %v", domains)
	}
	brokers := cfg.TelemetryKafkaBrokersList()
	if strings.Join(brokers, "|") != "k1:9092|k2:9092" {
		t.Errorf("TelemetryKafkaBrokersList = %v", brokers)
	}
}

func TestLoad_OTPReturnToClientProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DELIVERY_CHANNEL", "sms")
	t.Setenv("SMS_LOCAL_API_KEY", "k")
	t.Setenv("OTP_RETURN_TO_CLIENT", "true")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when OTP_RETURN_TO_CLIENT=true and APP_ENV=production")
	}
}

func TestLoad_OTPReturnToClientDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("OTP_RETURN_TO_CLIENT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should be true")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"zero attempts", map[string]string{"OTP_MAX_ATTEMPTS": "0"}},
		{"bad validity", map[string]string{"OTP_VALIDITY": "soon"}},
		{"negative validity", map[string]string{"OTP_VALIDITY": "-5s"}},
		{"bad sweep interval", map[string]string{"OTP_SWEEP_INTERVAL": "often"}},
		{"unknown channel", map[string]string{"DELIVERY_CHANNEL": "fax"}},
		{"sms without key", map[string]string{"DELIVERY_CHANNEL": "sms"}},
		{"email without host", map[string]string{"DELIVERY_CHANNEL": "email", "SMTP_FROM": "a@x.org"}},
		{"log in production", map[string]string{"APP_ENV": "production"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestValidity_InvalidFallsBack(t *testing.T) {
	cfg := &Config{OTPValidity: "invalid"}
	if cfg.Validity() != 60*time.Second {
		t.Errorf("Validity = %v, want 60s", cfg.Validity())
	}
	cfg = &Config{OTPValidity: "0s"}
	if cfg.Validity() != 60*time.Second {
		t.Errorf("Validity = %v, want 60s", cfg.Validity())
	}
}

func TestSweepInterval_InvalidDisables(t *testing.T) {
	cfg := &Config{OTPSweepInterval: "-1m"}
	if cfg.SweepInterval() != 0 {
		t.Errorf("SweepInterval = %v, want 0", cfg.SweepInterval())
	}
}

func TestNilConfigLists(t *testing.T) {
	var cfg *Config
	if cfg.AllowedDomains() != nil || cfg.TelemetryKafkaBrokersList() != nil {
		t.Error("nil config should return nil lists")
	}
}
