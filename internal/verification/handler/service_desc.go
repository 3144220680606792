package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Fully-qualified gRPC names of the OTP service.
const (
	ServiceName              = "otp.v1.OTPService"
	IssueCodeFullMethodName  = "/" + ServiceName + "/IssueCode"
	VerifyCodeFullMethodName = "/" + ServiceName + "/VerifyCode"
)

// Request and response field names.
const (
	FieldIdentity         = "identity"
	FieldCode             = "code"
	FieldMessage          = "message"
	FieldExpiresInSeconds = "expires_in_seconds"
	FieldValid            = "valid"
)

// OTPServiceServer is the server API for otp.v1.OTPService. Messages are google.protobuf.Struct
// values keyed by the Field* names.
type OTPServiceServer interface {
	IssueCode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyCode(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterOTPServiceServer registers srv on s.
func RegisterOTPServiceServer(s grpc.ServiceRegistrar, srv OTPServiceServer) {
	s.RegisterService(&OTPServiceDesc, srv)
}

func issueCodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OTPServiceServer).IssueCode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IssueCodeFullMethodName}
	h := func(ctx context.Context, req any) (any, error) {
		return srv.(OTPServiceServer).IssueCode(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, h)
}

func verifyCodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OTPServiceServer).VerifyCode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: VerifyCodeFullMethodName}
	h := func(ctx context.Context, req any) (any, error) {
		return srv.(OTPServiceServer).VerifyCode(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, h)
}

// OTPServiceDesc is the grpc.ServiceDesc for otp.v1.OTPService.
var OTPServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OTPServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IssueCode", Handler: issueCodeHandler},
		{MethodName: "VerifyCode", Handler: verifyCodeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "otp/v1/otp.proto",
}

// OTPServiceClient is the client API for otp.v1.OTPService.
type OTPServiceClient interface {
	IssueCode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	VerifyCode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type otpServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOTPServiceClient returns a client bound to cc.
func NewOTPServiceClient(cc grpc.ClientConnInterface) OTPServiceClient {
	return &otpServiceClient{cc: cc}
}

func (c *otpServiceClient) IssueCode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, IssueCodeFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *otpServiceClient) VerifyCode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, VerifyCodeFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
