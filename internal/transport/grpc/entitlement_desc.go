package grpc_server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const entitlementProtoFile = "coursehub/entitlement/v1/entitlement.proto"

// The service is described at init so server reflection can resolve it.
func init() {
	method := func(name, in, out string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(in),
			OutputType: proto.String(out),
		}
	}
	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(entitlementProtoFile),
		Package:    proto.String("coursehub.entitlement.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/struct.proto", "google/protobuf/wrappers.proto"},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("EntitlementService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("HasAccess", ".google.protobuf.Struct", ".google.protobuf.BoolValue"),
				method("ListPurchasedCourseIDs", ".google.protobuf.StringValue", ".google.protobuf.ListValue"),
				method("CountEnrollments", ".google.protobuf.StringValue", ".google.protobuf.Int64Value"),
			},
		}},
	}
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		panic("entitlement descriptor: " + err.Error())
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic("entitlement descriptor: " + err.Error())
	}
}

type entitlementHandler interface {
	HasAccess(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	ListPurchasedCourseIDs(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	CountEnrollments(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)
}

const (
	methodHasAccess              = "/" + ServiceName + "/HasAccess"
	methodListPurchasedCourseIDs = "/" + ServiceName + "/ListPurchasedCourseIDs"
	methodCountEnrollments       = "/" + ServiceName + "/CountEnrollments"
)

var entitlementServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*entitlementHandler)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "HasAccess",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(structpb.Struct)
				if err := dec(in); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(entitlementHandler).HasAccess(ctx, req.(*structpb.Struct))
				}
				if interceptor == nil {
					return call(ctx, in)
				}
				return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodHasAccess}, call)
			},
		},
		{
			MethodName: "ListPurchasedCourseIDs",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(wrapperspb.StringValue)
				if err := dec(in); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(entitlementHandler).ListPurchasedCourseIDs(ctx, req.(*wrapperspb.StringValue))
				}
				if interceptor == nil {
					return call(ctx, in)
				}
				return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListPurchasedCourseIDs}, call)
			},
		},
		{
			MethodName: "CountEnrollments",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(wrapperspb.StringValue)
				if err := dec(in); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(entitlementHandler).CountEnrollments(ctx, req.(*wrapperspb.StringValue))
				}
				if interceptor == nil {
					return call(ctx, in)
				}
				return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCountEnrollments}, call)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: entitlementProtoFile,
}

func RegisterEntitlementServer(s grpc.ServiceRegistrar, srv *EntitlementServer) {
	s.RegisterService(&entitlementServiceDesc, srv)
}

// EntitlementClient is the caller side used by sibling services.
type EntitlementClient struct {
	cc grpc.ClientConnInterface
}

func NewEntitlementClient(cc grpc.ClientConnInterface) *EntitlementClient {
	return &EntitlementClient{cc: cc}
}

func (c *EntitlementClient) HasAccess(ctx context.Context, userID, courseID string) (bool, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"user_id": userID, "course_id": courseID})
	if err != nil {
		return false, err
	}
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, methodHasAccess, in, out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

func (c *EntitlementClient) ListPurchasedCourseIDs(ctx context.Context, userID string) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodListPurchasedCourseIDs, wrapperspb.String(userID), out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		ids = append(ids, v.GetStringValue())
	}
	return ids, nil
}

func (c *EntitlementClient) CountEnrollments(ctx context.Context, courseID string) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, methodCountEnrollments, wrapperspb.String(courseID), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}
