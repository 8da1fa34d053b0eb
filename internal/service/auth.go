package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/lib/credential"
	"ledger-auth/internal/lib/logger/sl"
	"ledger-auth/internal/lib/metrics"
)

// AuthService answers the authorization predicates. Token checks collapse
// every failure into false or ErrInvalidToken so callers cannot tell a
// missing user from a wrong secret.
type AuthService struct {
	log        *slog.Logger
	creds      CredentialProvider
	access     AccessProvider
	hasher     SecretHasher
	adminKey   string
	serviceKey string
	metrics    *metrics.Metrics

	decoyMu sync.Mutex
	decoy   string
}

type CredentialProvider interface {
	GetCredentialHash(ctx context.Context, id uuid.UUID) (string, error)
}

type AccessProvider interface {
	IsTeamOwner(ctx context.Context, userID uuid.UUID) (bool, error)
	OwnsTeam(ctx context.Context, userID, teamID uuid.UUID) (bool, error)
	CanAccessTeam(ctx context.Context, userID, teamID uuid.UUID) (bool, error)
}

func NewAuthService(
	log *slog.Logger,
	creds CredentialProvider,
	access AccessProvider,
	hasher SecretHasher,
	adminKey, serviceKey string,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		log:        log,
		creds:      creds,
		access:     access,
		hasher:     hasher,
		adminKey:   adminKey,
		serviceKey: serviceKey,
		metrics:    m,
	}
}

// Authenticate resolves a bearer token to its user id.
func (s *AuthService) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	const op = "service.auth.Authenticate"

	userID, secret, err := credential.Decode(token)
	if err != nil {
		s.metrics.TokenValidation(metrics.ResultMalformed)
		return uuid.Nil, fmt.Errorf("%s: %w", op, apperrors.ErrMalformedToken)
	}

	hash, err := s.creds.GetCredentialHash(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.log.With(slog.String("op", op)).Error("failed to load credential", sl.Err(err))
		}
		// Burn the same work as a real check so absent users are not faster.
		s.hasher.Verify(ctx, secret, s.decoyHash())
		s.metrics.TokenValidation(metrics.ResultInvalid)
		return uuid.Nil, fmt.Errorf("%s: %w", op, apperrors.ErrInvalidToken)
	}

	if !s.hasher.Verify(ctx, secret, hash) {
		s.metrics.TokenValidation(metrics.ResultInvalid)
		return uuid.Nil, fmt.Errorf("%s: %w", op, apperrors.ErrInvalidToken)
	}

	s.metrics.TokenValidation(metrics.ResultValid)
	return userID, nil
}

// TokenValid never returns an error; any failure is simply false.
func (s *AuthService) TokenValid(ctx context.Context, token string) bool {
	_, err := s.Authenticate(ctx, token)
	return err == nil
}

// IsAdmin compares against the process-wide admin key in constant time.
func (s *AuthService) IsAdmin(key string) bool {
	return constantTimeEqual(key, s.adminKey)
}

func (s *AuthService) ServiceKeyValid(key string) bool {
	return constantTimeEqual(key, s.serviceKey)
}

func (s *AuthService) IsTeamOwner(ctx context.Context, userID uuid.UUID) (bool, error) {
	const op = "service.auth.IsTeamOwner"

	ok, err := s.access.IsTeamOwner(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

func (s *AuthService) OwnsTeam(ctx context.Context, userID, teamID uuid.UUID) (bool, error) {
	const op = "service.auth.OwnsTeam"

	ok, err := s.access.OwnsTeam(ctx, userID, teamID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

func (s *AuthService) CanAccessTeam(ctx context.Context, userID, teamID uuid.UUID) (bool, error) {
	const op = "service.auth.CanAccessTeam"

	ok, err := s.access.CanAccessTeam(ctx, userID, teamID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// decoyHash is computed once, detached from any request context, and kept
// only when hashing succeeded.
func (s *AuthService) decoyHash() string {
	s.decoyMu.Lock()
	defer s.decoyMu.Unlock()

	if s.decoy == "" {
		hash, err := s.hasher.Hash(context.Background(), uuid.NewString())
		if err != nil {
			s.log.Error("failed to compute decoy hash", sl.Err(err))
			return ""
		}
		s.decoy = hash
	}
	return s.decoy
}

func constantTimeEqual(given, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}
