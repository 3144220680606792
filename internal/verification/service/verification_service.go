// Package service implements the OTP request and verification flow on top of otp.Store:
// input validation, delivery, metrics, tracing and lifecycle events.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"otp-verification-service/internal/delivery"
	"otp-verification-service/internal/otp"
	"otp-verification-service/internal/telemetry"
)

const instrumentationName = "otp-verification-service/internal/verification"

// eventSource is the Source set on events emitted by this package.
const eventSource = "verification"

// ErrDelivery is returned by RequestCode when the channel could not deliver the code.
var ErrDelivery = errors.New("otp delivery failed")

// IssueResult is the outcome of RequestCode.
type IssueResult struct {
	// Code is set only when dev echo is enabled.
	Code      string
	Message   string
	ExpiresIn time.Duration
}

// VerifyResult is the outcome of a successful VerifyCode.
type VerifyResult struct {
	Message string
}

// Options configures a Service. Zero values are valid: email identities, any domain, no echo,
// the default slog logger, no events and the global OTel providers.
type Options struct {
	IdentityKind   IdentityKind
	AllowedDomains []string
	ReturnCode     bool
	Logger         *slog.Logger
	Emitter        telemetry.EventEmitter
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Service issues and verifies codes for validated identities.
type Service struct {
	store      *otp.Store
	channel    delivery.Channel
	validator  *inputValidator
	returnCode bool
	logger     *slog.Logger
	emitter    telemetry.EventEmitter
	tracer     trace.Tracer

	issued           metric.Int64Counter
	verified         metric.Int64Counter
	deliveryFailures metric.Int64Counter
}

// NewService returns a Service. store and channel must be non-nil.
func NewService(store *otp.Store, channel delivery.Channel, opts Options) (*Service, error) {
	if store == nil || channel == nil {
		return nil, errors.New("verification: store and channel are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mp := opts.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	meter := mp.Meter(instrumentationName)
	issued, err := meter.Int64Counter("otp.issued",
		metric.WithDescription("Codes issued."))
	if err != nil {
		return nil, fmt.Errorf("verification: otp.issued counter: %w", err)
	}
	verified, err := meter.Int64Counter("otp.verify",
		metric.WithDescription("Verification attempts by outcome."))
	if err != nil {
		return nil, fmt.Errorf("verification: otp.verify counter: %w", err)
	}
	failures, err := meter.Int64Counter("otp.delivery.failures",
		metric.WithDescription("Codes that could not be delivered."))
	if err != nil {
		return nil, fmt.Errorf("verification: otp.delivery.failures counter: %w", err)
	}

	iv, err := newInputValidator(opts.IdentityKind, opts.AllowedDomains)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:            store,
		channel:          channel,
		validator:        iv,
		returnCode:       opts.ReturnCode,
		logger:           logger,
		emitter:          opts.Emitter,
		tracer:           tp.Tracer(instrumentationName),
		issued:           issued,
		verified:         verified,
		deliveryFailures: failures,
	}, nil
}

// RequestCode validates identity, issues a fresh code and delivers it. A delivery failure
// returns an error wrapping ErrDelivery; the issued record stays in place and a new request
// replaces it.
func (s *Service) RequestCode(ctx context.Context, identity string) (*IssueResult, error) {
	ctx, span := s.tracer.Start(ctx, "otp.RequestCode")
	defer span.End()

	id, err := s.validator.identity(identity)
	if err != nil {
		span.SetStatus(codes.Error, "invalid identity")
		return nil, err
	}
	span.SetAttributes(attribute.String("otp.identity", id))

	code := s.store.IssueCode(id)
	s.issued.Add(ctx, 1)
	validity := s.store.Config().Validity

	if err := s.channel.Deliver(ctx, id, code); err != nil {
		s.deliveryFailures.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		s.logger.ErrorContext(ctx, "otp delivery failed", "identity", id, "error", err)
		s.emit(ctx, telemetry.EventOTPDeliveryFailed, id, map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	s.logger.InfoContext(ctx, "otp issued", "identity", id, "expires_in", validity.String())
	s.emit(ctx, telemetry.EventOTPIssued, id, map[string]any{"expires_in_seconds": int64(validity / time.Second)})

	res := &IssueResult{Message: otp.MsgSent, ExpiresIn: validity}
	if s.returnCode {
		res.Code = code
	}
	return res, nil
}

// VerifyCode validates the inputs and checks code against the store. Store outcomes are
// returned unchanged so callers can use errors.Is with the otp sentinels.
func (s *Service) VerifyCode(ctx context.Context, identity, code string) (*VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "otp.VerifyCode")
	defer span.End()

	id, err := s.validator.identity(identity)
	if err != nil {
		span.SetStatus(codes.Error, "invalid identity")
		return nil, err
	}
	code, err = s.validator.code(code)
	if err != nil {
		span.SetStatus(codes.Error, "invalid code")
		return nil, err
	}
	span.SetAttributes(attribute.String("otp.identity", id))

	err = s.store.VerifyCode(id, code)
	outcome := "success"
	if err != nil {
		outcome = otp.KindOf(err).String()
	}
	s.verified.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	span.SetAttributes(attribute.String("otp.outcome", outcome))

	if err != nil {
		span.SetStatus(codes.Error, outcome)
		s.logger.InfoContext(ctx, "otp verification failed", "identity", id, "outcome", outcome)
		s.emit(ctx, telemetry.EventOTPVerifyFailed, id, map[string]any{"outcome": outcome})
		return nil, err
	}

	s.logger.InfoContext(ctx, "otp verified", "identity", id)
	s.emit(ctx, telemetry.EventOTPVerified, id, nil)
	return &VerifyResult{Message: otp.MsgValid}, nil
}

// OnSweep is passed to otp.Store.RunSweeper; it records how many expired records were evicted.
func (s *Service) OnSweep(evicted int) {
	if evicted == 0 {
		return
	}
	ctx := context.Background()
	s.logger.DebugContext(ctx, "otp sweep", "evicted", evicted)
	s.emit(ctx, telemetry.EventOTPSwept, "", map[string]any{"evicted": evicted})
}

func (s *Service) emit(ctx context.Context, eventType, identity string, meta any) {
	if s.emitter == nil {
		return
	}
	ev := telemetry.NewEvent(eventType, eventSource, identity, meta)
	ev.RequestID = telemetry.RequestID(ctx)
	telemetry.EmitAsync(ctx, s.emitter, ev)
}
