package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"otp-verification-service/internal/otp"
	"otp-verification-service/internal/telemetry"
)

type fakeChannel struct {
	mu    sync.Mutex
	sent  map[string]string
	calls int
	err   error
}

func (f *fakeChannel) Deliver(_ context.Context, identity, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = make(map[string]string)
	}
	f.sent[identity] = code
	return nil
}

func (f *fakeChannel) last(identity string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[identity]
}

type chanEmitter struct {
	events chan *telemetry.Event
}

func newChanEmitter() *chanEmitter {
	return &chanEmitter{events: make(chan *telemetry.Event, 16)}
}

func (c *chanEmitter) Emit(_ context.Context, ev *telemetry.Event) error {
	c.events <- ev
	return nil
}

func (c *chanEmitter) next(t *testing.T) *telemetry.Event {
	t.Helper()
	select {
	case ev := <-c.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, ch *fakeChannel, opts Options) (*Service, *otp.Store) {
	t.Helper()
	store := otp.NewStore(otp.Config{})
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	svc, err := NewService(store, ch, opts)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestNewService_RequiresStoreAndChannel(t *testing.T) {
	if _, err := NewService(nil, &fakeChannel{}, Options{}); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewService(otp.NewStore(otp.Config{}), nil, Options{}); err == nil {
		t.Error("expected error for nil channel")
	}
}

func TestRequestCode_DeliversAndVerifies(t *testing.T) {
	ch := &fakeChannel{}
	svc, _ := newTestService(t, ch, Options{})
	ctx := context.Background()

	res, err := svc.RequestCode(ctx, "  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if res.Message != otp.MsgSent {
		t.Errorf("Message = %q, want %q", res.Message, otp.MsgSent)
	}
	if res.ExpiresIn != otp.DefaultValidity {
		t.Errorf("ExpiresIn = %v, want %v", res.ExpiresIn, otp.DefaultValidity)
	}
	if res.Code != "" {
		t.Errorf("Code = %q, want empty without echo", res.Code)
	}
	code := ch.last("alice@example.com")
	if !otp.IsWellFormed(code) {
		t.Fatalf("delivered code %q for normalized identity", code)
	}

	vr, err := svc.VerifyCode(ctx, "ALICE@example.com", code)
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if vr.Message != otp.MsgValid {
		t.Errorf("Message = %q, want %q", vr.Message, otp.MsgValid)
	}
	if _, err := svc.VerifyCode(ctx, "alice@example.com", code); !errors.Is(err, otp.ErrNotFound) {
		t.Errorf("second VerifyCode err = %v, want ErrNotFound", err)
	}
}

func TestRequestCode_EchoReturnsCode(t *testing.T) {
	ch := &fakeChannel{}
	svc, _ := newTestService(t, ch, Options{ReturnCode: true})
	res, err := svc.RequestCode(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if res.Code == "" || res.Code != ch.last("bob@example.com") {
		t.Errorf("Code = %q, delivered %q", res.Code, ch.last("bob@example.com"))
	}
}

func TestRequestCode_Validation(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		identity string
		want     string
	}{
		{"empty email", Options{}, "  ", MsgEmailRequired},
		{"bad email", Options{}, "not-an-email", MsgEmailInvalid},
		{"domain not allowed", Options{AllowedDomains: []string{"example.com"}}, "x@other.org", MsgEmailDomain},
		{"empty phone", Options{IdentityKind: IdentityPhone}, "", MsgPhoneRequired},
		{"bad phone", Options{IdentityKind: IdentityPhone}, "12345", MsgPhoneInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{}
			svc, store := newTestService(t, ch, tt.opts)
			_, err := svc.RequestCode(context.Background(), tt.identity)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Field != FieldIdentity || ve.Message != tt.want {
				t.Errorf("got %+v, want field %q message %q", ve, FieldIdentity, tt.want)
			}
			if ch.calls != 0 || store.Len() != 0 {
				t.Errorf("calls = %d, Len = %d; want no side effects", ch.calls, store.Len())
			}
		})
	}
}

func TestRequestCode_AllowedDomainAndPhone(t *testing.T) {
	ch := &fakeChannel{}
	svc, _ := newTestService(t, ch, Options{AllowedDomains: []string{" Example.com "}})
	if _, err := svc.RequestCode(context.Background(), "a@EXAMPLE.com"); err != nil {
		t.Errorf("allowed domain: %v", err)
	}

	ch = &fakeChannel{}
	svc, _ = newTestService(t, ch, Options{IdentityKind: IdentityPhone})
	if _, err := svc.RequestCode(context.Background(), "+6591234567"); err != nil {
		t.Fatalf("phone: %v", err)
	}
	if ch.last("+6591234567") == "" {
		t.Error("phone code not delivered")
	}
}

func TestRequestCode_DeliveryFailure(t *testing.T) {
	cause := errors.New("smtp down")
	ch := &fakeChannel{err: cause}
	em := newChanEmitter()
	svc, store := newTestService(t, ch, Options{Emitter: em})

	_, err := svc.RequestCode(context.Background(), "carol@example.com")
	if !errors.Is(err, ErrDelivery) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want ErrDelivery wrapping cause", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want issued record kept", store.Len())
	}
	ev := em.next(t)
	if ev.EventType != telemetry.EventOTPDeliveryFailed || ev.Identity != "carol@example.com" {
		t.Errorf("event = %s/%s", ev.EventType, ev.Identity)
	}
}

func TestVerifyCode_ValidationDoesNotTouchStore(t *testing.T) {
	ch := &fakeChannel{}
	svc, _ := newTestService(t, ch, Options{})
	ctx := context.Background()
	if _, err := svc.RequestCode(ctx, "dave@example.com"); err != nil {
		t.Fatal(err)
	}
	code := ch.last("dave@example.com")

	for _, bad := range []string{"", "12345", "1234567", "12a456"} {
		_, err := svc.VerifyCode(ctx, "dave@example.com", bad)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != FieldCode {
			t.Fatalf("code %q: err = %v, want code ValidationError", bad, err)
		}
	}
	// Ten malformed submissions did not consume attempts.
	if _, err := svc.VerifyCode(ctx, "dave@example.com", code); err != nil {
		t.Errorf("VerifyCode after malformed input: %v", err)
	}
}

func TestVerifyCode_MessagesForStoreErrors(t *testing.T) {
	ch := &fakeChannel{}
	svc, _ := newTestService(t, ch, Options{})
	ctx := context.Background()
	if _, err := svc.RequestCode(ctx, "erin@example.com"); err != nil {
		t.Fatal(err)
	}
	wrong := "000000"
	if ch.last("erin@example.com") == wrong {
		wrong = "111111"
	}
	_, err := svc.VerifyCode(ctx, "erin@example.com", wrong)
	if !errors.Is(err, otp.ErrMismatch) {
		t.Fatalf("err = %v, want ErrMismatch", err)
	}
	if got := otp.UserMessage(err); got != otp.MsgInvalid {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestVerifyCode_EmitsAndCounts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	ch := &fakeChannel{}
	em := newChanEmitter()
	svc, _ := newTestService(t, ch, Options{Emitter: em, MeterProvider: mp})
	ctx := telemetry.WithRequestID(context.Background(), "req-1")

	if _, err := svc.RequestCode(ctx, "frank@example.com"); err != nil {
		t.Fatal(err)
	}
	if ev := em.next(t); ev.EventType != telemetry.EventOTPIssued || ev.RequestID != "req-1" {
		t.Errorf("issue event = %s request_id %q", ev.EventType, ev.RequestID)
	}
	if _, err := svc.VerifyCode(ctx, "frank@example.com", ch.last("frank@example.com")); err != nil {
		t.Fatal(err)
	}
	if ev := em.next(t); ev.EventType != telemetry.EventOTPVerified {
		t.Errorf("verify event = %s", ev.EventType)
	}
	if _, err := svc.VerifyCode(ctx, "frank@example.com", "123456"); err == nil {
		t.Fatal("expected NotFound")
	}
	ev := em.next(t)
	if ev.EventType != telemetry.EventOTPVerifyFailed || string(ev.Metadata) != `{"outcome":"not_found"}` {
		t.Errorf("failure event = %s %s", ev.EventType, ev.Metadata)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	if totals["otp.issued"] != 1 || totals["otp.verify"] != 2 {
		t.Errorf("totals = %v", totals)
	}
}

func TestOnSweep(t *testing.T) {
	em := newChanEmitter()
	svc, _ := newTestService(t, &fakeChannel{}, Options{Emitter: em})
	svc.OnSweep(0)
	svc.OnSweep(3)
	ev := em.next(t)
	if ev.EventType != telemetry.EventOTPSwept || string(ev.Metadata) != `{"evicted":3}` {
		t.Errorf("event = %s %s", ev.EventType, ev.Metadata)
	}
}
