package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	pb "seqx/api/proto/v1"
	"seqx/internal/logging"
	"seqx/internal/transform"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type Server struct {
	grpc *grpc.Server
	lis  net.Listener
}

func StartServer(port int) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return NewServer(lis), nil
}

// NewServer registers the catalog service on lis. Serve must be called to
// start accepting calls. A panicking handler fails its call with
// codes.Internal instead of taking the process down.
func NewServer(lis net.Listener, opts ...grpc.ServerOption) *Server {
	return newServer(lis, catalogService{}, opts...)
}

func newServer(lis net.Listener, svc pb.TransformServiceServer, opts ...grpc.ServerOption) *Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		logCalls,
		recovery.UnaryServerInterceptor(recovery.WithRecoveryHandlerContext(recovered)),
	))
	s := &Server{
		grpc: grpc.NewServer(opts...),
		lis:  lis,
	}
	pb.RegisterTransformServiceServer(s.grpc, svc)
	return s
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }

// Serve blocks until Stop. A server stopped before it started serving is
// not an error.
func (s *Server) Serve() error {
	if err := s.grpc.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

// ----- catalog service ----------------------------------------------------

type catalogService struct {
	pb.UnimplementedTransformServiceServer
}

func (catalogService) Metadata(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return transform.MetadataStruct(transform.LocalMetadata())
}

func (catalogService) Health(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"ok": true, "details": "OK"})
}

func (catalogService) Apply(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	op, payload, err := pb.ParseApplyRequest(req)
	if err != nil {
		return nil, transform.ToStatus(fmt.Errorf("%w: %v", transform.ErrBadPayload, err))
	}
	out, err := transform.NewInProcessClient().Apply(ctx, op, payload)
	if err != nil {
		return nil, transform.ToStatus(err)
	}
	return pb.NewApplyReply(out), nil
}

func logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	res, err := handler(ctx, req)
	l := logging.Component("transport")
	if err != nil {
		l.Warn("rpc failed", "method", info.FullMethod, "dur", time.Since(start), "err", err)
	} else {
		l.Debug("rpc", "method", info.FullMethod, "dur", time.Since(start))
	}
	return res, err
}

func recovered(_ context.Context, p any) error {
	logging.Component("transport").Error("rpc panicked", "panic", p)
	return status.Errorf(codes.Internal, "panic: %v", p)
}
