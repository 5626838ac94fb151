package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
)

const (
	serviceName      = "riskgate.RiskGate"
	evaluateMethod   = "/" + serviceName + "/Evaluate"
	issueTokenMethod = "/" + serviceName + "/IssueToken"
)

// RiskGateServer is the gRPC service interface.
type RiskGateServer interface {
	Evaluate(ctx context.Context, req *HTTPRequest) (*Disposition, error)
	IssueToken(ctx context.Context, req *HTTPRequest) (*VerificationToken, error)
}

var serviceDesc = gogrpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RiskGateServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "IssueToken", Handler: issueTokenHandler},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "riskgate",
}

func evaluateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor gogrpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HTTPRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskGateServer).Evaluate(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RiskGateServer).Evaluate(ctx, req.(*HTTPRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func issueTokenHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor gogrpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HTTPRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskGateServer).IssueToken(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: issueTokenMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RiskGateServer).IssueToken(ctx, req.(*HTTPRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RiskGateClient calls the service over a connection.
type RiskGateClient struct {
	cc gogrpc.ClientConnInterface
}

// NewRiskGateClient creates a client. Every call is sent with the JSON codec.
func NewRiskGateClient(cc gogrpc.ClientConnInterface) *RiskGateClient {
	return &RiskGateClient{cc: cc}
}

// Evaluate asks the service what to do with req.
func (c *RiskGateClient) Evaluate(ctx context.Context, req *HTTPRequest, opts ...gogrpc.CallOption) (*Disposition, error) {
	out := new(Disposition)
	opts = append([]gogrpc.CallOption{gogrpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, evaluateMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// IssueToken asks the service for a verification token for the client that sent req.
func (c *RiskGateClient) IssueToken(ctx context.Context, req *HTTPRequest, opts ...gogrpc.CallOption) (*VerificationToken, error) {
	out := new(VerificationToken)
	opts = append([]gogrpc.CallOption{gogrpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, issueTokenMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
