package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	otphandler "otp-verification-service/internal/verification/handler"
)

// HealthCheckMethod is the full method name of the standard health check, skipped by telemetry.
const HealthCheckMethod = "/grpc.health.v1.Health/Check"

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// OTP is the verification service behind OTPService. If nil, OTP RPCs return Unimplemented.
	OTP otphandler.Verifier
	// Health is the standard health server. If nil, a new one reporting SERVING is registered.
	// Callers keep a reference to flip it to NOT_SERVING on shutdown.
	Health *health.Server
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - otp.v1.OTPService → internal/verification/handler
//   - grpc.health.v1.Health → google.golang.org/grpc/health
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	otphandler.RegisterOTPServiceServer(s, otphandler.NewServer(deps.OTP))

	hs := deps.Health
	if hs == nil {
		hs = health.NewServer()
	}
	hs.SetServingStatus(otphandler.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
}
