package transport

import (
	"context"
	"fmt"
	"io"
	"net"

	pb "metricshape/api/proto/v1"
	"metricshape/internal/logging"
	"metricshape/internal/telemetry"
	"metricshape/internal/transform"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server exposes a transformer as a gRPC plugin.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
}

func NewServer(t transform.Transformer) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	pb.RegisterTransformerServer(s.grpc, &transformerService{t: t})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(pb.Transformer_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func StartServer(port int, t transform.Transformer) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	s := NewServer(t)
	s.lis = lis
	return s, nil
}

func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func (s *Server) Serve() error {
	if s.lis == nil {
		return fmt.Errorf("transport: no listener")
	}
	return s.grpc.Serve(s.lis)
}

// ServeListener serves on lis instead of the listener opened by StartServer.
func (s *Server) ServeListener(lis net.Listener) error { return s.grpc.Serve(lis) }

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	if s.lis != nil {
		_ = s.lis.Close() // never served
	}
}

type transformerService struct {
	pb.UnimplementedTransformerServer
	t transform.Transformer
}

func (s *transformerService) Transform(_ context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	provider, topic, record, ok := pb.TransformRequestFields(in)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "request has no record field")
	}
	out, err := s.t.Transform(provider, topic, record)
	if err != nil {
		telemetry.ObserveFailure(telemetry.StagePlugin, err)
		return nil, transform.ToStatus(err)
	}
	telemetry.RecordsTotal.WithLabelValues(telemetry.StagePlugin, telemetry.ResultOK).Inc()
	return wrapperspb.String(out), nil
}

func (s *transformerService) TransformStream(stream pb.Transformer_TransformStreamServer) error {
	md, _ := metadata.FromIncomingContext(stream.Context())
	provider, topic := first(md.Get(pb.MDProvider)), first(md.Get(pb.MDTopic))

	var recvErr error
	records := func(yield func(string) bool) {
		for {
			in, err := stream.Recv()
			if err != nil {
				if err != io.EOF {
					recvErr = err
				}
				return
			}
			if !yield(in.GetValue()) {
				return
			}
		}
	}

	b := transform.NewBatch(s.t, provider, topic, records)
	defer b.Close()
	n := 0
	for b.Next() {
		if err := stream.Send(wrapperspb.String(b.Record())); err != nil {
			return err
		}
		n++
	}
	telemetry.RecordsTotal.WithLabelValues(telemetry.StagePlugin, telemetry.ResultOK).Add(float64(n))
	if err := b.Err(); err != nil {
		telemetry.ObserveFailure(telemetry.StagePlugin, err)
		logging.Component("transport").Warn("transform stream ended on failure",
			"provider", provider, "topic", topic, "err", err)
		return transform.ToStatus(err)
	}
	return recvErr
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
