package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/lib/credential"
	"ledger-auth/internal/lib/logger/sl"
	"ledger-auth/internal/lib/metrics"
)

type UserService struct {
	log      *slog.Logger
	users    UserProvider
	hasher   SecretHasher
	notifier Notifier
	metrics  *metrics.Metrics
}

type UserProvider interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateCredentialHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateUser(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

func NewUserService(
	log *slog.Logger,
	users UserProvider,
	hasher SecretHasher,
	notifier Notifier,
	m *metrics.Metrics,
) *UserService {
	return &UserService{
		log:      log,
		users:    users,
		hasher:   hasher,
		notifier: notifier,
		metrics:  m,
	}
}

// CreateUser registers a user and returns the only copy of their token.
func (s *UserService) CreateUser(ctx context.Context, name, email string) (models.User, string, error) {
	const op = "service.user.CreateUser"

	log := s.log.With(slog.String("op", op))
	log.Info("attempting to create user")

	name, email, err := normalizeProfile(name, email)
	if err != nil {
		log.Warn("invalid user payload", sl.Err(err))
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		log.Error("failed to check email", sl.Err(err))
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		log.Warn("email already registered")
		return models.User{}, "", fmt.Errorf("%s: %w", op, apperrors.ErrEmailTaken)
	}

	secret, hash, err := s.newCredential(ctx)
	if err != nil {
		log.Error("failed to issue credential", sl.Err(err))
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		ID:             uuid.New(),
		Name:           name,
		Email:          email,
		CredentialHash: hash,
	})
	if err != nil {
		if isExpected(err) {
			log.Warn("user rejected", sl.Err(err))
		} else {
			log.Error("failed to create user", sl.Err(err))
		}
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	token := credential.Construct(user.ID, secret)
	s.notifier.Welcome(ctx, user.Email, token)

	log.Info("user created", slog.String("user_id", user.ID.String()))

	return user, token, nil
}

// RegenerateToken replaces the stored hash. The previous token stops
// validating as soon as the update commits.
func (s *UserService) RegenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	const op = "service.user.RegenerateToken"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)
	log.Info("regenerating credential")

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		log.Warn("failed to load user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	secret, hash, err := s.newCredential(ctx)
	if err != nil {
		log.Error("failed to issue credential", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.UpdateCredentialHash(ctx, userID, hash); err != nil {
		log.Error("failed to store credential", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	token := credential.Construct(userID, secret)
	s.notifier.TokenReset(ctx, user.Email, token)

	log.Info("credential regenerated")

	return token, nil
}

func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "service.user.GetUser"

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.UserUpdate) (models.User, error) {
	const op = "service.user.UpdateProfile"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)
	log.Info("updating profile")

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return models.User{}, fmt.Errorf("%s: %w", op, apperrors.ErrUserNameRequired)
		}
		upd.Name = &name
	}

	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return models.User{}, fmt.Errorf("%s: %w", op, err)
		}
		upd.Email = &email

		current, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return models.User{}, fmt.Errorf("%s: %w", op, err)
		}
		if current.Email != email {
			exists, err := s.users.EmailExists(ctx, email)
			if err != nil {
				log.Error("failed to check email", sl.Err(err))
				return models.User{}, fmt.Errorf("%s: %w", op, err)
			}
			if exists {
				log.Warn("email already registered")
				return models.User{}, fmt.Errorf("%s: %w", op, apperrors.ErrEmailTaken)
			}
		}
	}

	user, err := s.users.UpdateUser(ctx, userID, upd)
	if err != nil {
		log.Warn("failed to update profile", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	const op = "service.user.DeleteUser"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)
	log.Info("deleting user")

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		log.Warn("failed to delete user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user deleted")
	return nil
}

func (s *UserService) newCredential(ctx context.Context) (string, string, error) {
	secret, err := credential.NewSecret(credential.KindUser)
	if err != nil {
		return "", "", err
	}

	start := time.Now()
	hash, err := s.hasher.Hash(ctx, secret)
	s.metrics.ObserveHash(time.Since(start))
	if err != nil {
		return "", "", err
	}

	return secret, hash, nil
}

func normalizeProfile(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", apperrors.ErrUserNameRequired
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return "", "", err
	}

	return name, email, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperrors.ErrEmailRequired
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.ErrInvalidEmail
	}

	return strings.ToLower(email), nil
}
