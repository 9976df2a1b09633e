package transform

import (
	"context"
	"fmt"
	"io"
	"iter"

	pb "metricshape/api/proto/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client wraps a transformer (over gRPC or in-process) and exposes a uniform API.
// Pipeline stages can swap implementations behind this interface.
type Client interface {
	Transform(ctx context.Context, provider, topic, record string) (string, error)
	Health(ctx context.Context) error
	Close() error
}

// GRPCClient talks to a transformer plugin over gRPC.
type GRPCClient struct {
	conn   *grpc.ClientConn
	svc    pb.TransformerClient
	health healthpb.HealthClient
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
		conn:   conn,
		svc:    pb.NewTransformerClient(conn),
		health: healthpb.NewHealthClient(conn),
	}, nil
}

func (c *GRPCClient) Transform(ctx context.Context, provider, topic, record string) (string, error) {
	out, err := c.svc.Transform(ctx, pb.NewTransformRequest(provider, topic, record))
	if err != nil {
		return "", FromStatus(err)
	}
	return out.GetValue(), nil
}

func (c *GRPCClient) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: pb.Transformer_ServiceDesc.ServiceName})
	if err != nil {
		return err
	}
	if s := resp.GetStatus(); s != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("transformer plugin not serving: %s", s)
	}
	return nil
}

// TransformBatch streams records to the plugin in lock-step: a record is
// sent only when the returned Batch is advanced. It returns (nil, nil) when
// records is nil. Closing the batch (or exhausting it) ends the stream.
func (c *GRPCClient) TransformBatch(ctx context.Context, provider, topic string, records iter.Seq[string]) (*Batch, error) {
	if records == nil {
		return nil, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	ctx = metadata.AppendToOutgoingContext(ctx, pb.MDProvider, provider, pb.MDTopic, topic)
	stream, err := c.svc.TransformStream(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	b := NewBatch(&streamTransformer{stream: stream}, provider, topic, records)
	b.onClose = func() {
		_ = stream.CloseSend()
		cancel()
	}
	return b, nil
}

func (c *GRPCClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

type streamTransformer struct {
	stream pb.Transformer_TransformStreamClient
}

func (s *streamTransformer) Transform(_, _, record string) (string, error) {
	if err := s.stream.Send(wrapperspb.String(record)); err != nil {
		if err == io.EOF {
			// the server ended the stream; the real status comes from Recv
			if _, err = s.stream.Recv(); err == nil {
				err = io.ErrUnexpectedEOF
			}
		}
		return "", FromStatus(err)
	}
	out, err := s.stream.Recv()
	if err != nil {
		if err == io.EOF {
			return "", io.ErrUnexpectedEOF
		}
		return "", FromStatus(err)
	}
	return out.GetValue(), nil
}

// InProcessClient adapts a transformer compiled into the host.
type InProcessClient struct {
	impl Transformer
}

func NewInProcessClient(impl Transformer) *InProcessClient { return &InProcessClient{impl: impl} }

func (c *InProcessClient) Transform(ctx context.Context, provider, topic, record string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.impl.Transform(provider, topic, record)
}

func (c *InProcessClient) Health(ctx context.Context) error { return ctx.Err() }
func (c *InProcessClient) Close() error                     { return nil }
