package interceptors

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"otp-verification-service/internal/telemetry"
)

type chanEmitter chan *telemetry.Event

func (c chanEmitter) Emit(_ context.Context, ev *telemetry.Event) error {
	c <- ev
	return nil
}

func TestTelemetryUnary_EmitsGRPCRequest(t *testing.T) {
	em := make(chanEmitter, 1)
	icpt := TelemetryUnary(em, nil)
	ctx := telemetry.WithRequestID(context.Background(), "req-9")
	wantErr := status.Error(codes.ResourceExhausted, "too many")

	_, err := icpt(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/otp.v1.OTPService/VerifyCode"},
		func(ctx context.Context, req any) (any, error) { return nil, wantErr })
	if err != wantErr {
		t.Fatalf("err = %v, want handler error passed through", err)
	}

	var ev *telemetry.Event
	select {
	case ev = <-em:
	case <-time.After(2 * time.Second):
		t.Fatal("no event emitted")
	}
	if ev.EventType != telemetry.EventGRPCRequest || ev.RequestID != "req-9" {
		t.Errorf("event = %s request_id %q", ev.EventType, ev.RequestID)
	}
	var meta grpcRequestMetadata
	if err := json.Unmarshal(ev.Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.FullMethod != "/otp.v1.OTPService/VerifyCode" || meta.StatusCode != codes.ResourceExhausted.String() {
		t.Errorf("meta = %+v", meta)
	}
}

func TestTelemetryUnary_SkipAndNil(t *testing.T) {
	em := make(chanEmitter, 1)
	skip := map[string]bool{"/grpc.health.v1.Health/Check": true}
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	resp, err := TelemetryUnary(em, skip)(context.Background(), nil, info, handler)
	if err != nil || resp != "ok" {
		t.Fatalf("resp, err = %v, %v", resp, err)
	}
	if _, err := TelemetryUnary(nil, nil)(context.Background(), nil, info, handler); err != nil {
		t.Fatalf("nil emitter: %v", err)
	}
	select {
	case ev := <-em:
		t.Errorf("unexpected event %s", ev.EventType)
	case <-time.After(50 * time.Millisecond):
	}
}
