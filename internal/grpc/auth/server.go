// Package auth serves ledger.auth.v1.Authentication for other backends.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/grpc/authv1"
	"ledger-auth/internal/lib/logger/sl"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
	ServiceKeyValid(key string) bool
}

type TeamLookup interface {
	GetTeamForUser(ctx context.Context, userID uuid.UUID) (models.UserTeam, error)
	ListTeamsForUser(ctx context.Context, userID uuid.UUID) ([]models.UserTeam, error)
}

type Server struct {
	log   *slog.Logger
	auth  Authenticator
	teams TeamLookup
}

func Register(gRPC grpc.ServiceRegistrar, log *slog.Logger, auth Authenticator, teams TeamLookup) {
	authv1.RegisterAuthenticationServer(gRPC, &Server{
		log:   log,
		auth:  auth,
		teams: teams,
	})
}

// ValidateToken accepts the token from the request body or from an
// "authorization: Bearer" header; either one being valid is enough.
func (s *Server) ValidateToken(ctx context.Context, req *authv1.ValidateTokenRequest) (*authv1.ValidateTokenResponse, error) {
	for _, token := range []string{req.Token, bearerFromMetadata(ctx)} {
		if token == "" {
			continue
		}
		if userID, err := s.auth.Authenticate(ctx, token); err == nil {
			return &authv1.ValidateTokenResponse{
				IsValid: true,
				UserID:  userID.String(),
				Message: "ok",
			}, nil
		}
	}

	return &authv1.ValidateTokenResponse{IsValid: false, Message: "invalid"}, nil
}

func (s *Server) GetUserTeam(ctx context.Context, req *authv1.UserRequest) (*authv1.GetUserTeamResponse, error) {
	const op = "grpc.auth.GetUserTeam"

	userID, err := s.resolveUser(ctx, req)
	if err != nil {
		return nil, err
	}

	team, err := s.teams.GetTeamForUser(ctx, userID)
	if err != nil {
		s.log.With(slog.String("op", op)).Debug("team lookup failed", sl.Err(err))
		return nil, toStatus(err)
	}

	return &authv1.GetUserTeamResponse{Team: toWireTeam(team)}, nil
}

func (s *Server) ListMembership(ctx context.Context, req *authv1.UserRequest) (*authv1.ListMembershipResponse, error) {
	const op = "grpc.auth.ListMembership"

	userID, err := s.resolveUser(ctx, req)
	if err != nil {
		return nil, err
	}

	teams, err := s.teams.ListTeamsForUser(ctx, userID)
	if err != nil {
		s.log.With(slog.String("op", op)).Error("membership lookup failed", sl.Err(err))
		return nil, toStatus(err)
	}

	resp := &authv1.ListMembershipResponse{Teams: make([]authv1.Team, 0, len(teams))}
	for _, t := range teams {
		resp.Teams = append(resp.Teams, toWireTeam(t))
	}
	return resp, nil
}

func (s *Server) resolveUser(ctx context.Context, req *authv1.UserRequest) (uuid.UUID, error) {
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			return uuid.Nil, status.Error(codes.InvalidArgument, "invalid user_id")
		}
		return id, nil
	}

	token := req.Token
	if token == "" {
		token = bearerFromMetadata(ctx)
	}
	if token == "" {
		return uuid.Nil, status.Error(codes.InvalidArgument, "user_id or token is required")
	}

	id, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return uuid.Nil, toStatus(err)
	}
	return id, nil
}

func toWireTeam(t models.UserTeam) authv1.Team {
	return authv1.Team{
		TeamID:  t.ID.String(),
		Name:    t.Name,
		OwnerID: t.Owner.String(),
		Role:    string(t.Role),
	}
}

// ServiceKeyInterceptor rejects calls to the Authentication service that do
// not carry the shared service key. Other services on the same server, such
// as health, are left alone.
func ServiceKeyInterceptor(auth Authenticator) grpc.UnaryServerInterceptor {
	prefix := "/" + authv1.ServiceName + "/"

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		keys := md.Get(authv1.ServiceKeyHeader)
		if len(keys) == 0 || !auth.ServiceKeyValid(keys[0]) {
			return nil, status.Error(codes.Unauthenticated, apperrors.ErrBadServiceKey.Error())
		}

		return handler(ctx, req)
	}
}

func bearerFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		if token, ok := strings.CutPrefix(v, "Bearer "); ok && token != "" {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

func toStatus(err error) error {
	var code codes.Code
	switch apperrors.Kind(err) {
	case apperrors.ErrAlreadyExists:
		code = codes.AlreadyExists
	case apperrors.ErrNotFound:
		code = codes.NotFound
	case apperrors.ErrConflict:
		code = codes.FailedPrecondition
	case apperrors.ErrBadRequest:
		code = codes.InvalidArgument
	case apperrors.ErrUnauthorized:
		code = codes.Unauthenticated
	case apperrors.ErrForbidden:
		code = codes.PermissionDenied
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, "deadline exceeded")
		}
		code = codes.Internal
	}
	return status.Error(code, apperrors.Message(err))
}
