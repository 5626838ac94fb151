package grpc

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"riskgate/gate"
)

// Evaluator decides what to do with a request.
type Evaluator interface {
	Evaluate(ctx context.Context, req gate.HTTPRequest) gate.Disposition
	Options() gate.Options
}

// TokenIssuer issues verification tokens.
type TokenIssuer interface {
	Issue(clientIP string, userAgent string, now time.Time) (string, error)
}

// Server serves the risk gate over gRPC.
type Server struct {
	logger     zerolog.Logger
	engine     Evaluator
	tokens     TokenIssuer
	grpcServer *gogrpc.Server
}

// NewServer creates a Server.
func NewServer(logger zerolog.Logger, engine Evaluator, tokens TokenIssuer) *Server {
	s := &Server{logger: logger, engine: engine, tokens: tokens}
	s.grpcServer = gogrpc.NewServer()
	s.grpcServer.RegisterService(&serviceDesc, s)
	return s
}

// Evaluate runs the engine on the request.
func (s *Server) Evaluate(ctx context.Context, in *HTTPRequest) (*Disposition, error) {
	req := newHTTPRequestWrapper(in)
	d := s.engine.Evaluate(ctx, req)
	return toDisposition(d, req.TransactionID()), nil
}

// IssueToken binds a new token to the client identity found in the request.
func (s *Server) IssueToken(ctx context.Context, in *HTTPRequest) (*VerificationToken, error) {
	req := newHTTPRequestWrapper(in)

	ip, err := gate.ClientIP(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ua, err := gate.UserAgent(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	token, err := s.tokens.Issue(ip, ua, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Str("txid", req.TransactionID()).Msg("Failed to issue verification token")
		return nil, status.Error(codes.Internal, "failed to issue token")
	}

	return &VerificationToken{
		Name:   gate.TokenName,
		Token:  token,
		MaxAge: int64(s.engine.Options().VerificationAge / time.Second),
	}, nil
}

// Serve listens on the given address and blocks until the listener fails or GracefulStop is called.
func (s *Server) Serve(network string, address string) error {
	lis, err := net.Listen(network, address)
	if err != nil {
		return err
	}

	return s.ServeListener(lis)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	s.logger.Info().Str("address", lis.Addr().String()).Msg("gRPC server listening")
	return s.grpcServer.Serve(lis)
}

// GracefulStop stops accepting calls and waits for running ones to finish.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}
