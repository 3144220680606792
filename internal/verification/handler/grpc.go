// Package handler exposes the verification service as the gRPC service otp.v1.OTPService.
package handler

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"otp-verification-service/internal/otp"
	"otp-verification-service/internal/verification/service"
)

// Verifier is the verification service used by the handler.
type Verifier interface {
	RequestCode(ctx context.Context, identity string) (*service.IssueResult, error)
	VerifyCode(ctx context.Context, identity, code string) (*service.VerifyResult, error)
}

// Server implements OTPServiceServer.
type Server struct {
	svc Verifier
}

// NewServer returns an OTP gRPC server. If svc is nil, all RPCs return Unimplemented.
func NewServer(svc Verifier) *Server {
	return &Server{svc: svc}
}

// IssueCode issues and delivers a code for the request's identity.
func (s *Server) IssueCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.svc == nil {
		return nil, status.Error(codes.Unimplemented, "method IssueCode not implemented")
	}
	res, err := s.svc.RequestCode(ctx, stringField(req, FieldIdentity))
	if err != nil {
		return nil, toStatus(err)
	}
	out := map[string]any{
		FieldMessage:          res.Message,
		FieldExpiresInSeconds: float64(res.ExpiresIn / time.Second),
	}
	if res.Code != "" {
		out[FieldCode] = res.Code
	}
	return newStruct(out)
}

// VerifyCode checks the submitted code. Failures are returned as status errors whose message is
// the user-facing text.
func (s *Server) VerifyCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.svc == nil {
		return nil, status.Error(codes.Unimplemented, "method VerifyCode not implemented")
	}
	res, err := s.svc.VerifyCode(ctx, stringField(req, FieldIdentity), stringField(req, FieldCode))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		FieldMessage: res.Message,
		FieldValid:   true,
	})
}

// toStatus maps service and store errors to gRPC status errors.
func toStatus(err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Message)
	case errors.Is(err, service.ErrDelivery):
		return status.Error(codes.Unavailable, otp.MsgSendFailed)
	case errors.Is(err, otp.ErrExpired):
		return status.Error(codes.FailedPrecondition, otp.UserMessage(err))
	case errors.Is(err, otp.ErrAttemptsExhausted):
		return status.Error(codes.ResourceExhausted, otp.UserMessage(err))
	case errors.Is(err, otp.ErrNotFound), errors.Is(err, otp.ErrMismatch):
		return status.Error(codes.InvalidArgument, otp.UserMessage(err))
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return st, nil
}
