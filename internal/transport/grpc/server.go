package grpc_server

import (
	"context"
	"errors"
	"time"

	"coursehub/internal/domain"
	"coursehub/internal/infrastructure/logger"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "coursehub.entitlement.v1.EntitlementService"

type EntitlementService interface {
	HasAccess(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	ListPurchasedCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	CountEnrollments(ctx context.Context, courseID uuid.UUID) (int64, error)
}

// EntitlementServer answers entitlement questions for sibling services. The
// messages are protobuf well-known types, so no generated stubs are needed.
type EntitlementServer struct {
	svc EntitlementService
	log *logger.Logger
}

func NewEntitlementServer(svc EntitlementService, log *logger.Logger) *EntitlementServer {
	return &EntitlementServer{svc: svc, log: log.With("transport", "grpc")}
}

// HasAccess expects {"user_id": "...", "course_id": "..."}.
func (s *EntitlementServer) HasAccess(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	fields := req.GetFields()
	userID, err := uuid.Parse(fields["user_id"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid user_id")
	}
	courseID, err := uuid.Parse(fields["course_id"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid course_id")
	}

	ok, err := s.svc.HasAccess(ctx, userID, courseID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *EntitlementServer) ListPurchasedCourseIDs(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	userID, err := uuid.Parse(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid user_id")
	}
	ids, err := s.svc.ListPurchasedCourseIDs(ctx, userID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	values := make([]*structpb.Value, 0, len(ids))
	for _, id := range ids {
		values = append(values, structpb.NewStringValue(id.String()))
	}
	return &structpb.ListValue{Values: values}, nil
}

func (s *EntitlementServer) CountEnrollments(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	courseID, err := uuid.Parse(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid course_id")
	}
	n, err := s.svc.CountEnrollments(ctx, courseID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return wrapperspb.Int64(n), nil
}

func (s *EntitlementServer) toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrCourseNotFound):
		return status.Error(codes.NotFound, "course not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		s.log.Error("entitlement rpc failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

// NewServer builds the gRPC server with the entitlement, health and reflection
// services registered.
func NewServer(svc EntitlementService, log *logger.Logger) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(log)))
	RegisterEntitlementServer(srv, NewEntitlementServer(svc, log))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	reflection.Register(srv)
	return srv
}

func loggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []interface{}{"method", info.FullMethod, "code", code.String(), "duration_ms", time.Since(start).Milliseconds()}
		if code == codes.Internal || code == codes.Unknown {
			log.Error("gRPC request", fields...)
		} else {
			log.Debug("gRPC request", fields...)
		}
		return resp, err
	}
}
