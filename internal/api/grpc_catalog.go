package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"medcenter/internal/database"
	"medcenter/internal/models"
	"medcenter/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const catalogServiceName = "medcenter.catalog.v1.CatalogService"

const (
	ListDoctorsMethod     = "/" + catalogServiceName + "/ListDoctors"
	ListDiagnosticsMethod = "/" + catalogServiceName + "/ListDiagnostics"
	ListSlotsMethod       = "/" + catalogServiceName + "/ListSlots"
)

// CatalogServer is the read-only catalog API for partner systems. Requests
// and responses are google.protobuf.Struct documents shaped like the REST
// responses.
type CatalogServer interface {
	ListDoctors(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListDiagnostics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListDoctors", Handler: unaryHandler(ListDoctorsMethod, CatalogServer.ListDoctors)},
		{MethodName: "ListDiagnostics", Handler: unaryHandler(ListDiagnosticsMethod, CatalogServer.ListDiagnostics)},
		{MethodName: "ListSlots", Handler: unaryHandler(ListSlotsMethod, CatalogServer.ListSlots)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medcenter/catalog/v1/catalog.proto",
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

func unaryHandler(
	fullMethod string,
	call func(CatalogServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CatalogServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type CatalogGRPCService struct {
	catalog *service.CatalogService
}

func NewCatalogGRPCService(catalog *service.CatalogService) *CatalogGRPCService {
	return &CatalogGRPCService{catalog: catalog}
}

func (s *CatalogGRPCService) ListDoctors(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doctors, err := s.catalog.Doctors(ctx, stringField(req, "query"), stringField(req, "department"))
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to load doctors")
	}
	return toStruct(map[string]any{"doctors": doctors})
}

func (s *CatalogGRPCService) ListDiagnostics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query, category := stringField(req, "query"), stringField(req, "category")
	tests, err := s.catalog.Tests(ctx, query, category)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to load tests")
	}
	packages, err := s.catalog.Packages(ctx, query, category)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to load packages")
	}
	return toStruct(map[string]any{"tests": tests, "packages": packages})
}

func (s *CatalogGRPCService) ListSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doctorID := int64(req.GetFields()["doctor_id"].GetNumberValue())
	if doctorID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "doctor_id is required")
	}
	dateStr := stringField(req, "date")
	date, err := time.ParseInLocation(models.DateLayout, dateStr, time.Local)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid date format; expected YYYY-MM-DD")
	}

	slots, err := s.catalog.AvailableSlots(ctx, doctorID, date)
	switch {
	case errors.Is(err, database.ErrUnknownDoctor), errors.Is(err, database.ErrNotFound):
		return nil, status.Error(codes.NotFound, "doctor not found")
	case err != nil:
		return nil, status.Error(codes.Internal, "failed to load slots")
	}
	return toStruct(map[string]any{"doctor_id": doctorID, "date": dateStr, "slots": slots})
}

func stringField(s *structpb.Struct, name string) string {
	return strings.TrimSpace(s.GetFields()[name].GetStringValue())
}

// toStruct converts v through its JSON form, so field names match REST.
func toStruct(v map[string]any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
