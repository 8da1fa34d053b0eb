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

const inviteColumns = `id, team_id, user_id, invited_by, status, expires_at, created_at, updated_at`

var inviteErrors = postgresql.ErrorMap{
	NotFound:            apperrors.ErrInviteNotFound,
	UniqueViolation:     apperrors.ErrInviteExists,
	ForeignKeyViolation: apperrors.ErrInviteReference,
}

type InviteRepo struct {
	base
}

func NewInviteRepo(storage *sqlx.DB, timeout time.Duration) *InviteRepo {
	return &InviteRepo{base: newBase(storage, timeout)}
}

// CreateInvite stores a pending invite. Expired pending rows for the same pair
// are purged first so they never trip the partial unique index; a concurrent
// creator that loses the race gets ErrInviteExists from the index itself.
func (r *InviteRepo) CreateInvite(ctx context.Context, invite models.Invite) (models.Invite, error) {
	const op = "repo.invite.CreateInvite"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}
	defer tx.Rollback()

	var refs struct {
		Team    bool `db:"team"`
		User    bool `db:"invitee"`
		Inviter bool `db:"inviter"`
	}
	err = tx.GetContext(ctx, &refs, `
		SELECT
			EXISTS (SELECT 1 FROM teams WHERE id = $1) AS team,
			EXISTS (SELECT 1 FROM users WHERE id = $2) AS invitee,
			EXISTS (SELECT 1 FROM users WHERE id = $3) AS inviter`,
		invite.TeamID, invite.UserID, invite.InvitedBy)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}
	switch {
	case !refs.Team:
		return models.Invite{}, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNotFound)
	case !refs.User, !refs.Inviter:
		return models.Invite{}, fmt.Errorf("%s: %w", op, apperrors.ErrUserNotFound)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM invites
		WHERE team_id = $1 AND user_id = $2 AND status = false AND expires_at <= now()`,
		invite.TeamID, invite.UserID); err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}

	active, err := hasActiveInvite(ctx, tx, invite.TeamID, invite.UserID)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}
	if active {
		return models.Invite{}, fmt.Errorf("%s: %w", op, apperrors.ErrInviteExists)
	}

	var created models.Invite
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO invites (id, team_id, user_id, invited_by, status, expires_at)
		VALUES ($1, $2, $3, $4, false, $5)
		RETURNING `+inviteColumns,
		invite.ID, invite.TeamID, invite.UserID, invite.InvitedBy, invite.ExpiresAt).StructScan(&created)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}

	if err := tx.Commit(); err != nil {
		return models.Invite{}, fmt.Errorf("%s: failed to commit transaction: %w", op, inviteErrors.Map(err))
	}

	return created, nil
}

func (r *InviteRepo) GetInvite(ctx context.Context, id string) (models.Invite, error) {
	const op = "repo.invite.GetInvite"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var invite models.Invite
	if err := r.storage.GetContext(ctx, &invite, `SELECT `+inviteColumns+` FROM invites WHERE id = $1`, id); err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}

	return invite, nil
}

// AcceptInvite flips status to true under a row lock. Of two concurrent
// accepts exactly one succeeds; the other sees ErrInviteAlreadyAccepted.
func (r *InviteRepo) AcceptInvite(ctx context.Context, id string) (models.Invite, error) {
	const op = "repo.invite.AcceptInvite"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.storage.BeginTxx(ctx, nil)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}
	defer tx.Rollback()

	var current models.Invite
	if err := tx.GetContext(ctx, &current, `SELECT `+inviteColumns+` FROM invites WHERE id = $1 FOR UPDATE`, id); err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}
	if current.Status {
		return models.Invite{}, fmt.Errorf("%s: %w", op, apperrors.ErrInviteAlreadyAccepted)
	}

	var accepted models.Invite
	err = tx.GetContext(ctx, &accepted, `
		UPDATE invites
		SET status = true, updated_at = now()
		WHERE id = $1 AND status = false AND expires_at > now()
		RETURNING `+inviteColumns, id)
	if err != nil {
		mapped := inviteErrors.Map(err)
		if mapped == apperrors.ErrInviteNotFound {
			// The row is locked and pending, so only the deadline can exclude it.
			mapped = apperrors.ErrInviteExpired
		}
		return models.Invite{}, fmt.Errorf("%s: %w", op, mapped)
	}

	if err := tx.Commit(); err != nil {
		return models.Invite{}, fmt.Errorf("%s: failed to commit transaction: %w", op, inviteErrors.Map(err))
	}

	return accepted, nil
}

// ExpireInvites hard-deletes pending invites whose deadline has passed.
func (r *InviteRepo) ExpireInvites(ctx context.Context) (int64, error) {
	const op = "repo.invite.ExpireInvites"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.storage.ExecContext(ctx, `DELETE FROM invites WHERE status = false AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}

	return n, nil
}

func (r *InviteRepo) DeleteInvite(ctx context.Context, id string) error {
	const op = "repo.invite.DeleteInvite"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.storage.ExecContext(ctx, `DELETE FROM invites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrInviteNotFound)
	}

	return nil
}

func (r *InviteRepo) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]models.Invite, error) {
	const op = "repo.invite.ListPendingForUser"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	invites := make([]models.Invite, 0)
	err := r.storage.SelectContext(ctx, &invites, `
		SELECT `+inviteColumns+`
		FROM invites
		WHERE user_id = $1 AND status = false AND expires_at > now()
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}

	return invites, nil
}

func (r *InviteRepo) ListPendingForTeam(ctx context.Context, teamID uuid.UUID) ([]models.Invite, error) {
	const op = "repo.invite.ListPendingForTeam"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	invites := make([]models.Invite, 0)
	err := r.storage.SelectContext(ctx, &invites, `
		SELECT `+inviteColumns+`
		FROM invites
		WHERE team_id = $1 AND status = false AND expires_at > now()
		ORDER BY created_at, id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, inviteErrors.Map(err))
	}

	return invites, nil
}

func (r *InviteRepo) HasActiveInvite(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	const op = "repo.invite.HasActiveInvite"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	active, err := hasActiveInvite(ctx, r.storage, teamID, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return active, nil
}

func hasActiveInvite(ctx context.Context, q sqlx.QueryerContext, teamID, userID uuid.UUID) (bool, error) {
	var active bool
	err := sqlx.GetContext(ctx, q, &active, `
		SELECT EXISTS (
			SELECT 1 FROM invites
			WHERE team_id = $1 AND user_id = $2 AND status = false AND expires_at > now()
		)`, teamID, userID)
	if err != nil {
		return false, inviteErrors.Map(err)
	}
	return active, nil
}
