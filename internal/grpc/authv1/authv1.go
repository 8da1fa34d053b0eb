// Package authv1 is the wire contract of the ledger.auth.v1.Authentication
// gRPC service described in api/ledger/auth/v1/authentication.proto.
// Messages use the protobuf binary encoding, so clients generated from that
// file interoperate with servers started with ServerCodec.
package authv1

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "ledger.auth.v1.Authentication"

const (
	ValidateTokenMethod  = "/" + ServiceName + "/ValidateToken"
	GetUserTeamMethod    = "/" + ServiceName + "/GetUserTeam"
	ListMembershipMethod = "/" + ServiceName + "/ListMembership"
)

// ServiceKeyHeader carries the service-to-service secret on every call.
const ServiceKeyHeader = "x-service-key"

// Field numbers follow authentication.proto.
type (
	ValidateTokenRequest struct {
		Token string // 1
	}

	ValidateTokenResponse struct {
		IsValid bool   // 1
		Message string // 2
		UserID  string // 3
	}

	// UserRequest identifies a user by id or by token. With both set the id wins.
	UserRequest struct {
		UserID string // 1
		Token  string // 2
	}

	Team struct {
		TeamID  string // 1
		Name    string // 2
		OwnerID string // 3
		Role    string // 4
	}

	// GetUserTeamResponse carries the Team fields at the top level.
	GetUserTeamResponse struct {
		Team
	}

	ListMembershipResponse struct {
		Teams []Team // 1
	}
)

type AuthenticationServer interface {
	ValidateToken(ctx context.Context, req *ValidateTokenRequest) (*ValidateTokenResponse, error)
	GetUserTeam(ctx context.Context, req *UserRequest) (*GetUserTeamResponse, error)
	ListMembership(ctx context.Context, req *UserRequest) (*ListMembershipResponse, error)
}

func RegisterAuthenticationServer(s grpc.ServiceRegistrar, srv AuthenticationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthenticationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ValidateToken", Handler: validateTokenHandler},
		{MethodName: "GetUserTeam", Handler: getUserTeamHandler},
		{MethodName: "ListMembership", Handler: listMembershipHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/auth/v1/authentication",
}

func validateTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ValidateTokenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthenticationServer).ValidateToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateTokenMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthenticationServer).ValidateToken(ctx, req.(*ValidateTokenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getUserTeamHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UserRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthenticationServer).GetUserTeam(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetUserTeamMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthenticationServer).GetUserTeam(ctx, req.(*UserRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listMembershipHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UserRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthenticationServer).ListMembership(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListMembershipMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthenticationServer).ListMembership(ctx, req.(*UserRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type AuthenticationClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthenticationClient(cc grpc.ClientConnInterface) *AuthenticationClient {
	return &AuthenticationClient{cc: cc}
}

func (c *AuthenticationClient) ValidateToken(ctx context.Context, in *ValidateTokenRequest, opts ...grpc.CallOption) (*ValidateTokenResponse, error) {
	out := new(ValidateTokenResponse)
	if err := c.cc.Invoke(ctx, ValidateTokenMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthenticationClient) GetUserTeam(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*GetUserTeamResponse, error) {
	out := new(GetUserTeamResponse)
	if err := c.cc.Invoke(ctx, GetUserTeamMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthenticationClient) ListMembership(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*ListMembershipResponse, error) {
	out := new(ListMembershipResponse)
	if err := c.cc.Invoke(ctx, ListMembershipMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
}
