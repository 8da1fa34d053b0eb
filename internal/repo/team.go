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

const teamColumns = `id, name, owner, created_at, updated_at`

var teamErrors = postgresql.ErrorMap{
	NotFound:            apperrors.ErrTeamNotFound,
	UniqueViolation:     apperrors.ErrTeamExists,
	ForeignKeyViolation: apperrors.ErrUserNotFound,
}

type TeamRepo struct {
	base
}

func NewTeamRepo(storage *sqlx.DB, timeout time.Duration) *TeamRepo {
	return &TeamRepo{base: newBase(storage, timeout)}
}

func (r *TeamRepo) CreateTeam(ctx context.Context, owner uuid.UUID, name string) (models.Team, error) {
	const op = "repo.team.CreateTeam"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO teams (id, name, owner) VALUES ($1, $2, $3) RETURNING ` + teamColumns

	var team models.Team
	if err := r.storage.QueryRowxContext(ctx, query, uuid.New(), name, owner).StructScan(&team); err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	return team, nil
}

func (r *TeamRepo) GetTeam(ctx context.Context, id uuid.UUID) (models.Team, error) {
	const op = "repo.team.GetTeam"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var team models.Team
	if err := r.storage.GetContext(ctx, &team, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id); err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	return team, nil
}

func (r *TeamRepo) TeamExists(ctx context.Context, owner uuid.UUID, name string) (bool, error) {
	const op = "repo.team.TeamExists"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.storage.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE owner = $1 AND name = $2)`, owner, name)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	return exists, nil
}

func (r *TeamRepo) ListTeamsForOwner(ctx context.Context, owner uuid.UUID, page, perPage int) ([]models.Team, int, error) {
	const op = "repo.team.ListTeamsForOwner"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.storage.GetContext(ctx, &total, `SELECT COUNT(*) FROM teams WHERE owner = $1`, owner); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	query := `
		SELECT ` + teamColumns + `
		FROM teams
		WHERE owner = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`

	teams := make([]models.Team, 0)
	if err := r.storage.SelectContext(ctx, &teams, query, owner, perPage, page*perPage); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	return teams, total, nil
}

func (r *TeamRepo) RenameTeam(ctx context.Context, id uuid.UUID, name string) (models.Team, error) {
	const op = "repo.team.RenameTeam"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}
	defer tx.Rollback()

	current, err := lockTeam(ctx, tx, id)
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}
	if current.Name == name {
		return current, nil
	}

	var taken bool
	err = tx.GetContext(ctx, &taken,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE owner = $1 AND name = $2 AND id <> $3)`,
		current.Owner, name, id)
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}
	if taken {
		return models.Team{}, fmt.Errorf("%s: %w", op, apperrors.ErrTeamExists)
	}

	var team models.Team
	err = tx.QueryRowxContext(ctx,
		`UPDATE teams SET name = $1, updated_at = now() WHERE id = $2 RETURNING `+teamColumns,
		name, id).StructScan(&team)
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	if err := tx.Commit(); err != nil {
		return models.Team{}, fmt.Errorf("%s: failed to commit transaction: %w", op, teamErrors.Map(err))
	}

	return team, nil
}

// TransferOwnership hands the team to newOwner. The new owner's membership row
// is dropped since ownership implies access, and the previous owner stays on as
// a member.
func (r *TeamRepo) TransferOwnership(ctx context.Context, id, newOwner uuid.UUID) (models.Team, error) {
	const op = "repo.team.TransferOwnership"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}
	defer tx.Rollback()

	current, err := lockTeam(ctx, tx, id)
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}
	if current.Owner == newOwner {
		return models.Team{}, fmt.Errorf("%s: %w", op, apperrors.ErrSameOwner)
	}

	var team models.Team
	err = tx.QueryRowxContext(ctx,
		`UPDATE teams SET owner = $1, updated_at = now() WHERE id = $2 RETURNING `+teamColumns,
		newOwner, id).StructScan(&team)
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memberships WHERE team_id = $1 AND user_id = $2`, id, newOwner); err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO memberships (user_id, team_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		current.Owner, id); err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	if err := tx.Commit(); err != nil {
		return models.Team{}, fmt.Errorf("%s: failed to commit transaction: %w", op, teamErrors.Map(err))
	}

	return team, nil
}

// DeleteTeamIfEmpty deletes the team only while no non-owner membership
// exists. The team row lock serializes it against AddMember.
func (r *TeamRepo) DeleteTeamIfEmpty(ctx context.Context, id uuid.UUID) error {
	const op = "repo.team.DeleteTeamIfEmpty"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}
	defer tx.Rollback()

	team, err := lockTeam(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var members int
	err = tx.GetContext(ctx, &members,
		`SELECT COUNT(*) FROM memberships WHERE team_id = $1 AND user_id <> $2`, id, team.Owner)
	if err != nil {
		return fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}
	if members > 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotEmpty)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE team_id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, deleteTeamErrors.Map(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, teamErrors.Map(err))
	}

	return nil
}

var deleteTeamErrors = postgresql.ErrorMap{
	NotFound:            apperrors.ErrTeamNotFound,
	ForeignKeyViolation: apperrors.ErrTeamNotEmpty,
}

// MigrateMembersAndDelete moves every member of src into dest, skipping users
// who already have access there, then deletes src. Same ids are a no-op.
func (r *TeamRepo) MigrateMembersAndDelete(ctx context.Context, src, dest uuid.UUID) (int, error) {
	const op = "repo.team.MigrateMembersAndDelete"

	if src == dest {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}
	defer tx.Rollback()

	// Lock in id order so two opposite migrations cannot deadlock.
	var locked []models.Team
	err = tx.SelectContext(ctx, &locked,
		`SELECT `+teamColumns+` FROM teams WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`, src, dest)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}
	if len(locked) != 2 {
		return 0, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
	}

	destOwner := locked[0].Owner
	if locked[1].ID == dest {
		destOwner = locked[1].Owner
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO memberships (user_id, team_id, created_at)
		SELECT m.user_id, $2::uuid, m.created_at
		FROM memberships m
		WHERE m.team_id = $1 AND m.user_id <> $3
		ON CONFLICT DO NOTHING`, src, dest, destOwner)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE team_id = $1`, src); err != nil {
		return 0, fmt.Errorf("%s: %w", op, teamErrors.Map(err))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, src); err != nil {
		return 0, fmt.Errorf("%s: %w", op, deleteTeamErrors.Map(err))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: failed to commit transaction: %w", op, teamErrors.Map(err))
	}

	return int(moved), nil
}

func lockTeam(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (models.Team, error) {
	var team models.Team
	if err := tx.GetContext(ctx, &team, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id); err != nil {
		return models.Team{}, teamErrors.Map(err)
	}
	return team, nil
}
