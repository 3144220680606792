// Package telemetry defines OTP lifecycle events and the emitters that ship them (OTel logs,
// Kafka). Emission is best-effort: callers log and ignore errors.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the verification service and the gRPC interceptor.
const (
	EventOTPIssued         = "otp_issued"
	EventOTPVerified       = "otp_verified"
	EventOTPVerifyFailed   = "otp_verify_failed"
	EventOTPDeliveryFailed = "otp_delivery_failed"
	EventOTPSwept          = "otp_swept"
	EventGRPCRequest       = "grpc_request"
)

// Event is one telemetry record. Metadata is a JSON object; it must never contain a code.
type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Identity  string          `json:"identity,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent returns an event with a fresh ID and CreatedAt set to now. meta is marshaled to
// JSON; a nil meta leaves Metadata empty.
func NewEvent(eventType, source, identity string, meta any) *Event {
	e := &Event{
		ID:        uuid.NewString(),
		EventType: eventType,
		Source:    source,
		Identity:  identity,
		CreatedAt: time.Now().UTC(),
	}
	if meta != nil {
		if raw, err := json.Marshal(meta); err == nil {
			e.Metadata = raw
		}
	}
	return e
}

// EventEmitter emits telemetry events (e.g. to OTel Logs or Kafka).
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Multi fans an event out to every non-nil emitter and joins their errors.
func Multi(emitters ...EventEmitter) EventEmitter {
	out := make(multiEmitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

type multiEmitter []EventEmitter

func (m multiEmitter) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
