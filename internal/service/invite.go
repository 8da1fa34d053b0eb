package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/lib/logger/sl"
	"ledger-auth/internal/lib/metrics"
)

const inviteCodeLength = 10

// DefaultInviteTTL applies when the service is built with a zero TTL.
const DefaultInviteTTL = 30 * time.Minute

type InviteService struct {
	log      *slog.Logger
	invites  InviteProvider
	teams    InviteTeamProvider
	users    InviteUserProvider
	notifier Notifier
	ttl      time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

type InviteProvider interface {
	CreateInvite(ctx context.Context, invite models.Invite) (models.Invite, error)
	GetInvite(ctx context.Context, id string) (models.Invite, error)
	AcceptInvite(ctx context.Context, id string) (models.Invite, error)
	ExpireInvites(ctx context.Context) (int64, error)
	DeleteInvite(ctx context.Context, id string) error
	ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]models.Invite, error)
	ListPendingForTeam(ctx context.Context, teamID uuid.UUID) ([]models.Invite, error)
	HasActiveInvite(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
}

type InviteTeamProvider interface {
	GetTeam(ctx context.Context, id uuid.UUID) (models.Team, error)
	IsTeamOwner(ctx context.Context, userID uuid.UUID) (bool, error)
	IsMember(ctx context.Context, userID, teamID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, userID, teamID uuid.UUID) (models.Membership, error)
}

type InviteUserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

func NewInviteService(
	log *slog.Logger,
	invites InviteProvider,
	teams InviteTeamProvider,
	users InviteUserProvider,
	notifier Notifier,
	ttl time.Duration,
	m *metrics.Metrics,
) *InviteService {
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	return &InviteService{
		log:      log,
		invites:  invites,
		teams:    teams,
		users:    users,
		notifier: notifier,
		ttl:      ttl,
		metrics:  m,
		now:      time.Now,
	}
}

// Invite is the owner-facing flow: resolve the invitee by email, apply the
// invite policy, store a pending invite with the default TTL and mail the code.
func (s *InviteService) Invite(ctx context.Context, actor, teamID uuid.UUID, email string) (models.Invite, error) {
	const op = "service.invite.Invite"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID.String()),
	)
	log.Info("attempting to invite user")

	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		log.Warn("failed to load team", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}
	if team.Owner != actor {
		log.Warn("caller does not own team")
		return models.Invite{}, fmt.Errorf("%s: %w", op, apperrors.ErrNotTeamOwner)
	}

	email, err = normalizeEmail(email)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	target, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		log.Warn("invitee not found", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.checkInvitee(ctx, team, target.ID); err != nil {
		log.Warn("invite rejected", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	invite, err := s.Create(ctx, team.ID, target.ID, actor, s.now().Add(s.ttl))
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	s.notifier.Invite(ctx, target.Email, team.Name, invite.ID, invite.ExpiresAt)

	return invite, nil
}

// Create stores a pending invite. It rejects a second active invite for the
// same (team, user) pair; under a race the loser gets ErrInviteExists from
// the store.
func (s *InviteService) Create(ctx context.Context, teamID, userID, invitedBy uuid.UUID, expiresAt time.Time) (models.Invite, error) {
	const op = "service.invite.Create"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID.String()),
		slog.String("user_id", userID.String()),
	)

	if !expiresAt.After(s.now()) {
		return models.Invite{}, fmt.Errorf("%s: %w", op, apperrors.ErrInviteExpiryInvalid)
	}

	active, err := s.invites.HasActiveInvite(ctx, teamID, userID)
	if err != nil {
		log.Error("failed to check active invites", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}
	if active {
		log.Warn("active invite already exists")
		return models.Invite{}, fmt.Errorf("%s: %w", op, apperrors.ErrInviteExists)
	}

	code, err := gonanoid.New(inviteCodeLength)
	if err != nil {
		log.Error("failed to generate invite code", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	invite, err := s.invites.CreateInvite(ctx, models.Invite{
		ID:        code,
		TeamID:    teamID,
		UserID:    userID,
		InvitedBy: invitedBy,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		if isExpected(err) {
			log.Warn("invite rejected by store", sl.Err(err))
		} else {
			log.Error("failed to create invite", sl.Err(err))
		}
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.InviteTransition("created", 1)
	log.Info("invite created", slog.Time("expires_at", invite.ExpiresAt))

	return invite, nil
}

// Get shows an invite to its target or to the owner of its team.
func (s *InviteService) Get(ctx context.Context, actor uuid.UUID, code string) (models.Invite, error) {
	const op = "service.invite.Get"

	invite, err := s.invites.GetInvite(ctx, code)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	if invite.UserID != actor {
		if _, err := s.requireTeamOwner(ctx, actor, invite.TeamID); err != nil {
			return models.Invite{}, fmt.Errorf("%s: %w", op, apperrors.ErrInviteNotYours)
		}
	}

	return invite, nil
}

// Accept marks the invite accepted and then grants membership. Only the
// invited user may accept, and only once. A repeated accept by the invitee
// still reports ErrInviteAlreadyAccepted but first makes sure the membership
// exists.
func (s *InviteService) Accept(ctx context.Context, actor uuid.UUID, code string) (models.Invite, error) {
	const op = "service.invite.Accept"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", actor.String()),
	)
	log.Info("attempting to accept invite")

	invite, err := s.invites.GetInvite(ctx, code)
	if err != nil {
		log.Warn("invite lookup failed", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}
	if invite.UserID != actor {
		log.Warn("invite belongs to another user")
		return models.Invite{}, fmt.Errorf("%s: %w", op, apperrors.ErrInviteNotYours)
	}

	accepted, err := s.invites.AcceptInvite(ctx, code)
	if errors.Is(err, apperrors.ErrInviteAlreadyAccepted) {
		// A previous accept may have committed without its membership row.
		if _, addErr := s.teams.AddMember(ctx, actor, invite.TeamID); addErr != nil && !errors.Is(addErr, apperrors.ErrAlreadyMember) {
			log.Error("membership repair failed", sl.Err(addErr))
			return models.Invite{}, fmt.Errorf("%s: %w", op, addErr)
		}
	}
	if err != nil {
		log.Warn("invite not accepted", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.teams.AddMember(ctx, actor, accepted.TeamID); err != nil && !errors.Is(err, apperrors.ErrAlreadyMember) {
		log.Error("invite accepted but membership insert failed", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.InviteTransition("accepted", 1)
	log.Info("invite accepted", slog.String("team_id", accepted.TeamID.String()))

	return accepted, nil
}

// Cancel hard-deletes an invite. The team owner may revoke it and the invitee
// may decline it.
func (s *InviteService) Cancel(ctx context.Context, actor uuid.UUID, code string) error {
	const op = "service.invite.Cancel"

	log := s.log.With(slog.String("op", op))

	invite, err := s.invites.GetInvite(ctx, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if invite.UserID != actor {
		if _, err := s.requireTeamOwner(ctx, actor, invite.TeamID); err != nil {
			log.Warn("cancel rejected", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.invites.DeleteInvite(ctx, code); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.InviteTransition("cancelled", 1)
	log.Info("invite cancelled", slog.String("team_id", invite.TeamID.String()))

	return nil
}

// ExpireSweep deletes pending invites past their deadline and reports how
// many went.
func (s *InviteService) ExpireSweep(ctx context.Context) (int64, error) {
	const op = "service.invite.ExpireSweep"

	log := s.log.With(slog.String("op", op))

	n, err := s.invites.ExpireInvites(ctx)
	if err != nil {
		log.Error("failed to sweep invites", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.InviteTransition("expired", int(n))
	if n > 0 {
		log.Info("expired invites removed", slog.Int64("count", n))
	}

	return n, nil
}

// RunSweeper calls ExpireSweep every interval until ctx is done.
func (s *InviteService) RunSweeper(ctx context.Context, interval time.Duration) error {
	const op = "service.invite.RunSweeper"

	if interval <= 0 {
		return fmt.Errorf("%s: interval must be positive", op)
	}

	s.log.With(slog.String("op", op)).Info("invite sweeper started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Errors are logged inside; the next tick retries.
			_, _ = s.ExpireSweep(ctx)
		}
	}
}

func (s *InviteService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Invite, error) {
	const op = "service.invite.ListForUser"

	invites, err := s.invites.ListPendingForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return invites, nil
}

func (s *InviteService) ListForTeam(ctx context.Context, actor, teamID uuid.UUID) ([]models.Invite, error) {
	const op = "service.invite.ListForTeam"

	if _, err := s.requireTeamOwner(ctx, actor, teamID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	invites, err := s.invites.ListPendingForTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return invites, nil
}

func (s *InviteService) HasActiveInvite(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	const op = "service.invite.HasActiveInvite"

	active, err := s.invites.HasActiveInvite(ctx, teamID, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return active, nil
}

// checkInvitee applies the invite policy: the target must not already have
// access to the team and must not own any team.
func (s *InviteService) checkInvitee(ctx context.Context, team models.Team, userID uuid.UUID) error {
	if team.Owner == userID {
		return apperrors.ErrAlreadyMember
	}

	owner, err := s.teams.IsTeamOwner(ctx, userID)
	if err != nil {
		return err
	}
	if owner {
		return apperrors.ErrInviteeIsOwner
	}

	member, err := s.teams.IsMember(ctx, userID, team.ID)
	if err != nil {
		return err
	}
	if member {
		return apperrors.ErrAlreadyMember
	}

	return nil
}

func (s *InviteService) requireTeamOwner(ctx context.Context, actor, teamID uuid.UUID) (models.Team, error) {
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return models.Team{}, err
	}
	if team.Owner != actor {
		return models.Team{}, apperrors.ErrNotTeamOwner
	}
	return team, nil
}
