package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/storage/postgresql"
)

var membershipErrors = postgresql.ErrorMap{
	NotFound:            apperrors.ErrTeamNotFound,
	UniqueViolation:     apperrors.ErrAlreadyMember,
	ForeignKeyViolation: apperrors.ErrUserNotFound,
}

// AddMember inserts a membership row. The team row is share-locked so a
// concurrent DeleteTeamIfEmpty either sees the new member or wins first.
func (r *TeamRepo) AddMember(ctx context.Context, userID, teamID uuid.UUID) (models.Membership, error) {
	const op = "repo.team.AddMember"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}
	defer tx.Rollback()

	var owner uuid.UUID
	if err := tx.GetContext(ctx, &owner, `SELECT owner FROM teams WHERE id = $1 FOR SHARE`, teamID); err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}
	if owner == userID {
		return models.Membership{}, fmt.Errorf("%s: %w", op, apperrors.ErrAlreadyMember)
	}

	var m models.Membership
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO memberships (user_id, team_id) VALUES ($1, $2) RETURNING user_id, team_id, created_at`,
		userID, teamID).StructScan(&m)
	if err != nil {
		return models.Membership{}, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}

	if err := tx.Commit(); err != nil {
		return models.Membership{}, fmt.Errorf("%s: failed to commit transaction: %w", op, membershipErrors.Map(err))
	}

	return m, nil
}

func (r *TeamRepo) RemoveMember(ctx context.Context, userID, teamID uuid.UUID) error {
	const op = "repo.team.RemoveMember"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.storage.ExecContext(ctx,
		`DELETE FROM memberships WHERE user_id = $1 AND team_id = $2`, userID, teamID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotMember)
	}

	return nil
}

func (r *TeamRepo) ListMembers(ctx context.Context, teamID uuid.UUID, page, perPage int) ([]models.Member, int, error) {
	const op = "repo.team.ListMembers"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.storage.GetContext(ctx, &total, `SELECT COUNT(*) FROM memberships WHERE team_id = $1`, teamID); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}

	query := `
		SELECT
			u.id AS user_id,
			u.name,
			u.email,
			m.created_at AS joined_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.created_at, u.id
		LIMIT $2 OFFSET $3`

	members := make([]models.Member, 0)
	if err := r.storage.SelectContext(ctx, &members, query, teamID, perPage, page*perPage); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}

	return members, total, nil
}

func (r *TeamRepo) IsTeamOwner(ctx context.Context, userID uuid.UUID) (bool, error) {
	const op = "repo.team.IsTeamOwner"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var owns bool
	if err := r.storage.GetContext(ctx, &owns, `SELECT EXISTS (SELECT 1 FROM teams WHERE owner = $1)`, userID); err != nil {
		return false, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}

	return owns, nil
}

func (r *TeamRepo) OwnsTeam(ctx context.Context, userID, teamID uuid.UUID) (bool, error) {
	const op = "repo.team.OwnsTeam"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var owns bool
	err := r.storage.GetContext(ctx, &owns,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1 AND owner = $2)`, teamID, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}

	return owns, nil
}

func (r *TeamRepo) IsMember(ctx context.Context, userID, teamID uuid.UUID) (bool, error) {
	const op = "repo.team.IsMember"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var member bool
	err := r.storage.GetContext(ctx, &member,
		`SELECT EXISTS (SELECT 1 FROM memberships WHERE user_id = $1 AND team_id = $2)`, userID, teamID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}

	return member, nil
}

// CanAccessTeam is true for the owner and for anyone with a membership row.
func (r *TeamRepo) CanAccessTeam(ctx context.Context, userID, teamID uuid.UUID) (bool, error) {
	const op = "repo.team.CanAccessTeam"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT
			EXISTS (SELECT 1 FROM teams WHERE id = $1 AND owner = $2)
			OR EXISTS (SELECT 1 FROM memberships WHERE team_id = $1 AND user_id = $2)`

	var ok bool
	if err := r.storage.GetContext(ctx, &ok, query, teamID, userID); err != nil {
		return false, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}

	return ok, nil
}

// userTeamsQuery lists owned teams first (oldest first), then memberships in
// join order.
const userTeamsQuery = `
	SELECT id, name, owner, created_at, updated_at, role, joined_at
	FROM (
		SELECT t.id, t.name, t.owner, t.created_at, t.updated_at,
		       'owner' AS role, t.created_at AS joined_at, 0 AS priority
		FROM teams t
		WHERE t.owner = $1
		UNION ALL
		SELECT t.id, t.name, t.owner, t.created_at, t.updated_at,
		       'member' AS role, m.created_at AS joined_at, 1 AS priority
		FROM memberships m
		JOIN teams t ON t.id = m.team_id
		WHERE m.user_id = $1 AND t.owner <> $1
	) ut
	ORDER BY priority, joined_at, id`

func (r *TeamRepo) ListTeamsForUser(ctx context.Context, userID uuid.UUID) ([]models.UserTeam, error) {
	const op = "repo.team.ListTeamsForUser"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	teams := make([]models.UserTeam, 0)
	if err := r.storage.SelectContext(ctx, &teams, userTeamsQuery, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}

	return teams, nil
}

func (r *TeamRepo) GetTeamForUser(ctx context.Context, userID uuid.UUID) (models.UserTeam, error) {
	const op = "repo.team.GetTeamForUser"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var team models.UserTeam
	if err := r.storage.GetContext(ctx, &team, userTeamsQuery+` LIMIT 1`, userID); err != nil {
		return models.UserTeam{}, fmt.Errorf("%s: %w", op, membershipErrors.Map(err))
	}

	return team, nil
}
