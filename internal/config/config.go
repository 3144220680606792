// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// OTPValidity is how long an issued code stays valid (e.g. "60s").
	OTPValidity string `mapstructure:"OTP_VALIDITY"`
	// OTPMaxAttempts is the number of wrong submissions tolerated per code.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// OTPSweepInterval enables the background reaper of expired codes when > 0 (e.g. "5m").
	OTPSweepInterval string `mapstructure:"OTP_SWEEP_INTERVAL"`
	// OTPReturnToClient echoes the issued code in the IssueCode response. Development only;
	// Load rejects it when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// OTPAllowedDomains is a comma-separated list of email domains allowed to request codes; empty allows any.
	OTPAllowedDomains string `mapstructure:"OTP_ALLOWED_DOMAINS"`

	// DeliveryChannel selects how codes are sent: log, sms or email.
	DeliveryChannel string `mapstructure:"DELIVERY_CHANNEL"`
	// SMSLocalAPIKey is the API key for SMS Local. Required when DeliveryChannel is sms.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for SMS Local.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS Local API base URL.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`
	SMTPHost        string `mapstructure:"SMTP_HOST"`
	SMTPPort        int    `mapstructure:"SMTP_PORT"`
	SMTPUsername    string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword    string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom        string `mapstructure:"SMTP_FROM"`

	// OTelEndpoint is the OTLP collector endpoint; empty disables export.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTelInsecure forces plaintext OTLP even for https endpoints.
	OTelInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name and the log "service" field.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	// When set, OTP and gRPC events are also published to Kafka.
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group of cmd/worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL cmd/worker pushes events to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTP_VALIDITY", "60s")
	v.SetDefault("OTP_MAX_ATTEMPTS", 10)
	v.SetDefault("OTP_SWEEP_INTERVAL", "0s")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("OTP_ALLOWED_DOMAINS", "")
	v.SetDefault("DELIVERY_CHANNEL", "log")
	v.SetDefault("SMS_LOCAL_API_KEY", "")
	v.SetDefault("SMS_LOCAL_SENDER", "")
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://app.smslocal.in/api/smsapi")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "otp-service")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "otp-telemetry")
	v.SetDefault("KAFKA_GROUP_ID", "otp-telemetry-worker")
	v.SetDefault("LOKI_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if cfg.OTPMaxAttempts < 1 {
		return nil, errors.New("config: OTP_MAX_ATTEMPTS must be at least 1")
	}
	if d, err := time.ParseDuration(cfg.OTPValidity); err != nil || d <= 0 {
		return nil, errors.New("config: OTP_VALIDITY must be a positive duration (e.g. 60s)")
	}
	if d, err := time.ParseDuration(cfg.OTPSweepInterval); err != nil || d < 0 {
		return nil, errors.New("config: OTP_SWEEP_INTERVAL must be a non-negative duration")
	}
	switch cfg.DeliveryChannel {
	case "log", "sms", "email":
	default:
		return nil, errors.New("config: DELIVERY_CHANNEL must be one of log, sms, email")
	}
	if cfg.DeliveryChannel == "log" && cfg.Env == "production" {
		return nil, errors.New("config: DELIVERY_CHANNEL=log must not be used when APP_ENV=production")
	}
	if cfg.DeliveryChannel == "sms" && cfg.SMSLocalAPIKey == "" {
		return nil, errors.New("config: SMS_LOCAL_API_KEY is required when DELIVERY_CHANNEL=sms")
	}
	if cfg.DeliveryChannel == "email" && (cfg.SMTPHost == "" || cfg.SMTPFrom == "") {
		return nil, errors.New("config: SMTP_HOST and SMTP_FROM are required when DELIVERY_CHANNEL=email")
	}

	return &cfg, nil
}

// Validity parses OTPValidity as a time.Duration. Returns 60s if unset or invalid.
func (c *Config) Validity() time.Duration {
	d, err := time.ParseDuration(c.OTPValidity)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// SweepInterval parses OTPSweepInterval. Returns 0 (sweeper disabled) if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.OTPSweepInterval)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// AllowedDomains returns the lower-cased allowed email domains, or nil if any domain is allowed.
func (c *Config) AllowedDomains() []string {
	if c == nil {
		return nil
	}
	out := splitList(c.OTPAllowedDomains)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if Kafka publishing is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TelemetryKafkaBrokers)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
