package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/leocisternasa/mediprotek-test/internal/user/application"
	"github.com/leocisternasa/mediprotek-test/internal/user/domain"
)

const serviceName = "mediprotek.user.v1.UserDirectoryService"

// UserDirectoryService is the internal directory API consumed by the auth
// service for canonical-record mutations and lookups.
type UserDirectoryService interface {
	CreateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUserByEmail(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BulkDeleteUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type UserDirectoryServer struct {
	service *application.Service
}

func NewUserDirectoryServer(service *application.Service) *UserDirectoryServer {
	return &UserDirectoryServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc UserDirectoryService) {
	methods := []struct {
		name   string
		invoke func(context.Context, *structpb.Struct) (*structpb.Struct, error)
	}{
		{"CreateUser", svc.CreateUser},
		{"GetUser", svc.GetUser},
		{"GetUserByEmail", svc.GetUserByEmail},
		{"ListUsers", svc.ListUsers},
		{"UpdateUser", svc.UpdateUser},
		{"DeleteUser", svc.DeleteUser},
		{"BulkDeleteUsers", svc.BulkDeleteUsers},
	}
	descs := make([]grpc.MethodDesc, 0, len(methods))
	for _, m := range methods {
		descs = append(descs, grpc.MethodDesc{
			MethodName: m.name,
			Handler:    structHandler("/"+serviceName+"/"+m.name, m.invoke),
		})
	}
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*UserDirectoryService)(nil),
		Methods:     descs,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "proto/user/v1/user_directory.proto",
	}, svc)
}

func structHandler(fullMethod string, invoke func(context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return invoke(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return invoke(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func (s *UserDirectoryServer) CreateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	createReq := application.CreateUserRequest{
		Email:          stringField(fields, "email"),
		FirstName:      stringField(fields, "first_name"),
		LastName:       stringField(fields, "last_name"),
		Role:           stringField(fields, "role"),
		IdempotencyKey: stringField(fields, "idempotency_key"),
	}
	if raw := stringField(fields, "birth_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid birth_date")
		}
		createReq.BirthDate = &parsed
	}
	if raw := stringField(fields, "phone"); raw != "" {
		createReq.Phone = &raw
	}

	view, err := s.service.CreateUser(ctx, createReq)
	if err != nil {
		return nil, toStatusError(err)
	}
	return userViewToStruct(view)
}

func (s *UserDirectoryServer) GetUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDField(req)
	if err != nil {
		return nil, err
	}
	view, err := s.service.GetUser(ctx, userID)
	if err != nil {
		return nil, toStatusError(err)
	}
	return userViewToStruct(view)
}

func (s *UserDirectoryServer) GetUserByEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := stringField(req.GetFields(), "email")
	if email == "" {
		return nil, status.Error(codes.InvalidArgument, "missing email")
	}
	view, err := s.service.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, toStatusError(err)
	}
	return userViewToStruct(view)
}

func (s *UserDirectoryServer) ListUsers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	resp, err := s.service.ListUsers(ctx, application.ListUsersRequest{
		Limit:  intField(fields, "limit"),
		Offset: intField(fields, "offset"),
		Search: stringField(fields, "search"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	users := make([]any, 0, len(resp.Users))
	for _, view := range resp.Users {
		users = append(users, userViewToMap(view))
	}
	out, err := structpb.NewStruct(map[string]any{
		"users": users,
		"total": resp.Total,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return out, nil
}

func (s *UserDirectoryServer) UpdateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDField(req)
	if err != nil {
		return nil, err
	}
	fields := req.GetFields()
	updateReq := application.UpdateUserRequest{UserID: userID}
	if v, ok := fields["email"]; ok {
		raw := v.GetStringValue()
		updateReq.Email = &raw
	}
	if v, ok := fields["first_name"]; ok {
		raw := v.GetStringValue()
		updateReq.FirstName = &raw
	}
	if v, ok := fields["last_name"]; ok {
		raw := v.GetStringValue()
		updateReq.LastName = &raw
	}
	if v, ok := fields["role"]; ok {
		raw := v.GetStringValue()
		updateReq.Role = &raw
	}
	if v, ok := fields["birth_date"]; ok {
		parsed, err := time.Parse(time.RFC3339, v.GetStringValue())
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid birth_date")
		}
		updateReq.BirthDate = &parsed
	}
	if v, ok := fields["phone"]; ok {
		raw := v.GetStringValue()
		updateReq.Phone = &raw
	}

	view, err := s.service.UpdateUser(ctx, updateReq)
	if err != nil {
		return nil, toStatusError(err)
	}
	return userViewToStruct(view)
}

func (s *UserDirectoryServer) DeleteUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDField(req)
	if err != nil {
		return nil, err
	}
	if err := s.service.DeleteUser(ctx, userID); err != nil {
		return nil, toStatusError(err)
	}
	out, err := structpb.NewStruct(map[string]any{"deleted": true})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return out, nil
}

func (s *UserDirectoryServer) BulkDeleteUsers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rawIDs := req.GetFields()["user_ids"].GetListValue().GetValues()
	if len(rawIDs) == 0 {
		return nil, status.Error(codes.InvalidArgument, "missing user_ids")
	}
	ids := make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := uuid.Parse(raw.GetStringValue())
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid user id")
		}
		ids = append(ids, id)
	}

	resp, err := s.service.BulkDeleteUsers(ctx, ids)
	if err != nil {
		return nil, toStatusError(err)
	}
	deleted := make([]any, 0, len(resp.Deleted))
	for _, id := range resp.Deleted {
		deleted = append(deleted, id)
	}
	missing := make([]any, 0, len(resp.Missing))
	for _, id := range resp.Missing {
		missing = append(missing, id)
	}
	out, err := structpb.NewStruct(map[string]any{
		"deleted": deleted,
		"missing": missing,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return out, nil
}

func userIDField(req *structpb.Struct) (uuid.UUID, error) {
	raw := stringField(req.GetFields(), "user_id")
	if raw == "" {
		return uuid.Nil, status.Error(codes.InvalidArgument, "missing user_id")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "invalid user_id")
	}
	return userID, nil
}

func stringField(fields map[string]*structpb.Value, key string) string {
	if v, ok := fields[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func intField(fields map[string]*structpb.Value, key string) int {
	if v, ok := fields[key]; ok {
		return int(v.GetNumberValue())
	}
	return 0
}

func userViewToMap(view application.UserView) map[string]any {
	out := map[string]any{
		"user_id":    view.ID,
		"email":      view.Email,
		"first_name": view.FirstName,
		"last_name":  view.LastName,
		"role":       view.Role,
		"created_at": view.CreatedAt.Format(time.RFC3339),
		"updated_at": view.UpdatedAt.Format(time.RFC3339),
	}
	if view.BirthDate != nil {
		out["birth_date"] = view.BirthDate.Format(time.RFC3339)
	}
	if view.Phone != nil {
		out["phone"] = *view.Phone
	}
	return out
}

func userViewToStruct(view application.UserView) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(userViewToMap(view))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return out, nil
}

func toStatusError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "user not found")
	case errors.Is(err, domain.ErrConflict):
		return status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return status.Error(codes.Aborted, "idempotency conflict")
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Errorf(codes.InvalidArgument, "%v", err)
	default:
		return status.Errorf(codes.Internal, "internal error")
	}
}
