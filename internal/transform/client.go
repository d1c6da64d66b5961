package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pb "seqx/api/proto/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Name and Version identify this catalog in Metadata replies.
const (
	Name    = "seqx"
	Version = "0.1.0"
)

type Metadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Ops     []Op   `json:"ops"`
}

// Client wraps the catalog (in-process or over gRPC) and exposes a uniform API.
// Pipeline stages can swap transport implementations behind this interface.
type Client interface {
	Metadata(ctx context.Context) (Metadata, error)
	Health(ctx context.Context) error
	Apply(ctx context.Context, op string, payload []byte) ([]byte, error)
	Close() error
}

// LocalMetadata describes the catalog compiled into this binary.
func LocalMetadata() Metadata {
	return Metadata{Name: Name, Version: Version, Ops: Ops()}
}

// InProcessClient calls the catalog compiled into the engine.
type InProcessClient struct{}

func NewInProcessClient() *InProcessClient { return &InProcessClient{} }

func (c *InProcessClient) Metadata(context.Context) (Metadata, error) {
	return LocalMetadata(), nil
}
func (c *InProcessClient) Health(ctx context.Context) error { return ctx.Err() }
func (c *InProcessClient) Apply(ctx context.Context, op string, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Apply(op, payload)
}
func (c *InProcessClient) Close() error { return nil }

// GRPCClient calls a remote catalog over gRPC.
type GRPCClient struct {
	conn *grpc.ClientConn
	svc  pb.TransformServiceClient
}

func NewGRPCClient(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{
		conn: conn,
		svc:  pb.NewTransformServiceClient(conn),
	}, nil
}

func (c *GRPCClient) Metadata(ctx context.Context) (Metadata, error) {
	var md Metadata
	res, err := c.svc.Metadata(ctx, &emptypb.Empty{})
	if err != nil {
		return md, fromStatus(err)
	}
	b, err := json.Marshal(res.AsMap())
	if err != nil {
		return md, err
	}
	if err := json.Unmarshal(b, &md); err != nil {
		return md, fmt.Errorf("metadata: %w", err)
	}
	return md, nil
}

func (c *GRPCClient) Health(ctx context.Context) error {
	res, err := c.svc.Health(ctx, &emptypb.Empty{})
	if err != nil {
		return fromStatus(err)
	}
	if !res.GetFields()["ok"].GetBoolValue() {
		return fmt.Errorf("remote unhealthy: %s", res.GetFields()["details"].GetStringValue())
	}
	return nil
}

func (c *GRPCClient) Apply(ctx context.Context, op string, payload []byte) ([]byte, error) {
	req, err := pb.NewApplyRequest(op, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	res, err := c.svc.Apply(ctx, req)
	if err != nil {
		return nil, fromStatus(err)
	}
	return pb.ParseApplyReply(res)
}

func (c *GRPCClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// fromStatus maps catalog failures back onto the package sentinels.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrUnknownOp, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrBadPayload, st.Message())
	}
	return err
}

// ToStatus is the server side of fromStatus.
func ToStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnknownOp):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrBadPayload):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// MetadataStruct encodes md for the Metadata reply.
func MetadataStruct(md Metadata) (*structpb.Struct, error) {
	b, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
