package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
	"github.com/leocisternasa/mediprotek-test/internal/auth/ports"
)

const directoryService = "mediprotek.user.v1.UserDirectoryService"

// DirectoryClient talks to the user directory over gRPC. Requests and
// responses ride as structs so no generated client code is needed.
type DirectoryClient struct {
	conn *grpc.ClientConn
}

func NewDirectoryClient(endpoint string) (*DirectoryClient, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial user directory grpc: %w", err)
	}
	return &DirectoryClient{conn: conn}, nil
}

func (c *DirectoryClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *DirectoryClient) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, "/"+directoryService+"/"+method, in, out); err != nil {
		return nil, mapStatusError(err)
	}
	return out, nil
}

func (c *DirectoryClient) CreateUser(ctx context.Context, params ports.DirectoryCreateParams) (ports.DirectoryUser, error) {
	req := map[string]any{
		"email":      params.Email,
		"first_name": params.FirstName,
		"last_name":  params.LastName,
		"role":       params.Role,
	}
	if params.BirthDate != nil {
		req["birth_date"] = params.BirthDate.Format(time.RFC3339)
	}
	if params.Phone != nil {
		req["phone"] = *params.Phone
	}
	if params.IdempotencyKey != "" {
		req["idempotency_key"] = params.IdempotencyKey
	}
	resp, err := c.invoke(ctx, "CreateUser", req)
	if err != nil {
		return ports.DirectoryUser{}, err
	}
	return toDirectoryUser(resp)
}

func (c *DirectoryClient) GetUser(ctx context.Context, userID uuid.UUID) (ports.DirectoryUser, error) {
	resp, err := c.invoke(ctx, "GetUser", map[string]any{"user_id": userID.String()})
	if err != nil {
		return ports.DirectoryUser{}, err
	}
	return toDirectoryUser(resp)
}

func (c *DirectoryClient) ListUsers(ctx context.Context, params ports.DirectoryListParams) ([]ports.DirectoryUser, int64, error) {
	resp, err := c.invoke(ctx, "ListUsers", map[string]any{
		"limit":  params.Limit,
		"offset": params.Offset,
		"search": params.Search,
	})
	if err != nil {
		return nil, 0, err
	}

	fields := resp.GetFields()
	rows := fields["users"].GetListValue().GetValues()
	users := make([]ports.DirectoryUser, 0, len(rows))
	for _, row := range rows {
		user, err := directoryUserFromFields(row.GetStructValue().GetFields())
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	total := int64(fields["total"].GetNumberValue())
	return users, total, nil
}

func (c *DirectoryClient) UpdateUser(ctx context.Context, params ports.DirectoryUpdateParams) (ports.DirectoryUser, error) {
	req := map[string]any{"user_id": params.UserID.String()}
	if params.Email != nil {
		req["email"] = *params.Email
	}
	if params.FirstName != nil {
		req["first_name"] = *params.FirstName
	}
	if params.LastName != nil {
		req["last_name"] = *params.LastName
	}
	if params.Role != nil {
		req["role"] = *params.Role
	}
	if params.BirthDate != nil {
		req["birth_date"] = params.BirthDate.Format(time.RFC3339)
	}
	if params.Phone != nil {
		req["phone"] = *params.Phone
	}
	resp, err := c.invoke(ctx, "UpdateUser", req)
	if err != nil {
		return ports.DirectoryUser{}, err
	}
	return toDirectoryUser(resp)
}

func (c *DirectoryClient) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	_, err := c.invoke(ctx, "DeleteUser", map[string]any{"user_id": userID.String()})
	return err
}

func (c *DirectoryClient) BulkDeleteUsers(ctx context.Context, userIDs []uuid.UUID) (ports.DirectoryBulkDeleteResult, error) {
	ids := make([]any, 0, len(userIDs))
	for _, id := range userIDs {
		ids = append(ids, id.String())
	}
	resp, err := c.invoke(ctx, "BulkDeleteUsers", map[string]any{"user_ids": ids})
	if err != nil {
		return ports.DirectoryBulkDeleteResult{}, err
	}

	fields := resp.GetFields()
	result := ports.DirectoryBulkDeleteResult{}
	for _, v := range fields["deleted"].GetListValue().GetValues() {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return ports.DirectoryBulkDeleteResult{}, fmt.Errorf("parse deleted id: %w", err)
		}
		result.Deleted = append(result.Deleted, id)
	}
	for _, v := range fields["missing"].GetListValue().GetValues() {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return ports.DirectoryBulkDeleteResult{}, fmt.Errorf("parse missing id: %w", err)
		}
		result.Missing = append(result.Missing, id)
	}
	return result, nil
}

func toDirectoryUser(resp *structpb.Struct) (ports.DirectoryUser, error) {
	return directoryUserFromFields(resp.GetFields())
}

func directoryUserFromFields(fields map[string]*structpb.Value) (ports.DirectoryUser, error) {
	userID, err := uuid.Parse(fields["user_id"].GetStringValue())
	if err != nil {
		return ports.DirectoryUser{}, fmt.Errorf("parse directory user_id: %w", err)
	}
	user := ports.DirectoryUser{
		UserID:    userID,
		Email:     fields["email"].GetStringValue(),
		FirstName: fields["first_name"].GetStringValue(),
		LastName:  fields["last_name"].GetStringValue(),
		Role:      fields["role"].GetStringValue(),
	}
	if raw := fields["created_at"].GetStringValue(); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			user.CreatedAt = t
		}
	}
	if raw := fields["updated_at"].GetStringValue(); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			user.UpdatedAt = t
		}
	}
	if raw := fields["birth_date"].GetStringValue(); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			user.BirthDate = &t
		}
	}
	if v, ok := fields["phone"]; ok {
		phone := v.GetStringValue()
		user.Phone = &phone
	}
	return user, nil
}

func mapStatusError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", domain.ErrConflict, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, st.Message())
	case codes.Aborted:
		return fmt.Errorf("%w: %s", domain.ErrIdempotencyConflict, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", domain.ErrUnavailable, st.Message())
	default:
		return err
	}
}

var _ ports.UserDirectory = (*DirectoryClient)(nil)
