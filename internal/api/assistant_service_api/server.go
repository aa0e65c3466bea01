package assistant_service_api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/intent"
	"github.com/Domenick1991/airbooking/internal/service/assistant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "airbooking.assistant.v1.Assistant"

// AssistantServer is the gRPC surface of the assistant. Messages are
// google.protobuf.Struct values mirroring the HTTP JSON bodies.
type AssistantServer interface {
	Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RunAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssistantServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Query", Handler: unaryHandler("Query", AssistantServer.Query)},
		{MethodName: "RunAction", Handler: unaryHandler("RunAction", AssistantServer.RunAction)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "airbooking/assistant/v1/assistant.proto",
}

func RegisterAssistantServer(s grpc.ServiceRegistrar, srv AssistantServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler(method string, call func(AssistantServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AssistantServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AssistantServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Server implements AssistantServer over the assistant use case.
type Server struct {
	assistant assistant.AssistantUseCase
	logger    *zap.Logger
}

func NewServer(a assistant.AssistantUseCase, logger *zap.Logger) *Server {
	return &Server{assistant: a, logger: logger}
}

func (s *Server) Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env, err := s.assistant.Query(ctx, stringField(req, "prompt"), stringField(req, "lang"))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toStruct(env)
}

func (s *Server) RunAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var params intent.QueryParams
	if p := req.GetFields()["params"].GetStructValue(); p != nil {
		raw, err := p.MarshalJSON()
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid params")
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid params")
		}
	}

	out, err := s.assistant.RunAction(ctx, stringField(req, "action"), params, stringField(req, "lang"))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toStruct(out)
}

func (s *Server) toStatus(err error) error {
	var (
		validation *domain.ValidationError
		extraction *domain.ExtractionError
	)
	switch {
	case errors.As(err, &validation):
		return status.Error(codes.InvalidArgument, validation.Message)
	case errors.As(err, &extraction):
		return status.Error(codes.Unavailable, "intent service unavailable")
	default:
		s.logger.Error("grpc assistant call failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

// toStruct converts a JSON-serialisable value into a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

var _ AssistantServer = (*Server)(nil)
