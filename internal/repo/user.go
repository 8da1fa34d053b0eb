package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/storage/postgresql"
)

const userColumns = `id, name, email, credential_hash, created_at, updated_at`

var userErrors = postgresql.ErrorMap{
	NotFound:            apperrors.ErrUserNotFound,
	UniqueViolation:     apperrors.ErrEmailTaken,
	ForeignKeyViolation: apperrors.ErrUserOwnsTeam,
}

type UserRepo struct {
	base
}

func NewUserRepo(storage *sqlx.DB, timeout time.Duration) *UserRepo {
	return &UserRepo{base: newBase(storage, timeout)}
}

func (r *UserRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const op = "repo.user.CreateUser"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (id, name, email, credential_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	var created models.User
	err := r.storage.QueryRowxContext(ctx, query, user.ID, user.Name, user.Email, user.CredentialHash).StructScan(&created)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}

	return created, nil
}

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	const op = "repo.user.GetUserByID"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := r.storage.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}

	return user, nil
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "repo.user.GetUserByEmail"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := r.storage.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}

	return user, nil
}

func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "repo.user.EmailExists"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := r.storage.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email); err != nil {
		return false, fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}

	return exists, nil
}

func (r *UserRepo) GetCredentialHash(ctx context.Context, id uuid.UUID) (string, error) {
	const op = "repo.user.GetCredentialHash"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var hash string
	if err := r.storage.GetContext(ctx, &hash, `SELECT credential_hash FROM users WHERE id = $1`, id); err != nil {
		return "", fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}

	return hash, nil
}

// UpdateCredentialHash swaps the stored hash in a single statement. Concurrent
// regenerations race and the last write wins.
func (r *UserRepo) UpdateCredentialHash(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "repo.user.UpdateCredentialHash"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.storage.ExecContext(ctx,
		`UPDATE users SET credential_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
	}

	return nil
}

func (r *UserRepo) UpdateUser(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (models.User, error) {
	const op = "repo.user.UpdateUser"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE users
		SET name = COALESCE($1, name),
		    email = COALESCE($2, email),
		    updated_at = now()
		WHERE id = $3
		RETURNING ` + userColumns

	var user models.User
	if err := r.storage.QueryRowxContext(ctx, query, upd.Name, upd.Email, id).StructScan(&user); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}

	return user, nil
}

// DeleteUser removes a user who owns no team. Memberships and invites go with
// the row; owned teams block it.
func (r *UserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "repo.user.DeleteUser"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}
	defer tx.Rollback()

	var owns bool
	if err := tx.GetContext(ctx, &owns, `SELECT EXISTS (SELECT 1 FROM teams WHERE owner = $1)`, id); err != nil {
		return fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}
	if owns {
		return fmt.Errorf("%s: %w", op, apperrors.ErrUserOwnsTeam)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, userErrors.Map(err))
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, userErrors.Map(err))
	}

	return nil
}
