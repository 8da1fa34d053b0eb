package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/lib/logger/sl"
)

type TeamService struct {
	log      *slog.Logger
	teamRepo TeamProvider
}

type TeamProvider interface {
	CreateTeam(ctx context.Context, owner uuid.UUID, name string) (models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (models.Team, error)
	TeamExists(ctx context.Context, owner uuid.UUID, name string) (bool, error)
	ListTeamsForOwner(ctx context.Context, owner uuid.UUID, page, perPage int) ([]models.Team, int, error)
	RenameTeam(ctx context.Context, id uuid.UUID, name string) (models.Team, error)
	TransferOwnership(ctx context.Context, id, newOwner uuid.UUID) (models.Team, error)
	DeleteTeamIfEmpty(ctx context.Context, id uuid.UUID) error
	MigrateMembersAndDelete(ctx context.Context, src, dest uuid.UUID) (int, error)
	AddMember(ctx context.Context, userID, teamID uuid.UUID) (models.Membership, error)
	RemoveMember(ctx context.Context, userID, teamID uuid.UUID) error
	ListMembers(ctx context.Context, teamID uuid.UUID, page, perPage int) ([]models.Member, int, error)
	IsMember(ctx context.Context, userID, teamID uuid.UUID) (bool, error)
	ListTeamsForUser(ctx context.Context, userID uuid.UUID) ([]models.UserTeam, error)
	GetTeamForUser(ctx context.Context, userID uuid.UUID) (models.UserTeam, error)
}

func NewTeamService(
	log *slog.Logger,
	teamRepo TeamProvider) *TeamService {
	return &TeamService{
		log:      log,
		teamRepo: teamRepo,
	}
}

func (s *TeamService) CreateTeam(ctx context.Context, owner uuid.UUID, name string) (models.Team, error) {
	const op = "service.team.CreateTeam"

	log := s.log.With(
		slog.String("op", op),
		slog.String("owner", owner.String()),
	)

	log.Info("attempting to create team")

	name = strings.TrimSpace(name)
	if name == "" {
		log.Warn("team name is required")
		return models.Team{}, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNameRequired)
	}

	exists, err := s.teamRepo.TeamExists(ctx, owner, name)
	if err != nil {
		log.Error("failed to check team existence", sl.Err(err))
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		log.Warn("team already exists")
		return models.Team{}, fmt.Errorf("%s: %w", op, apperrors.ErrTeamExists)
	}

	team, err := s.teamRepo.CreateTeam(ctx, owner, name)
	if err != nil {
		log.Error("failed to create team", sl.Err(err))
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("team created", slog.String("team_id", team.ID.String()))

	return team, nil
}

// GetTeam returns the team if actor owns it or is a member.
func (s *TeamService) GetTeam(ctx context.Context, actor, teamID uuid.UUID) (models.Team, error) {
	const op = "service.team.GetTeam"

	team, err := s.requireAccess(ctx, actor, teamID)
	if err != nil {
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}

	return team, nil
}

func (s *TeamService) ListOwnedTeams(ctx context.Context, owner uuid.UUID, page, perPage int) (models.TeamPage, error) {
	const op = "service.team.ListOwnedTeams"

	page, perPage = models.NormalizePage(page, perPage)

	teams, total, err := s.teamRepo.ListTeamsForOwner(ctx, owner, page, perPage)
	if err != nil {
		s.log.With(slog.String("op", op)).Error("failed to list teams", sl.Err(err))
		return models.TeamPage{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TeamPage{Teams: teams, Total: total, Page: page, PerPage: perPage}, nil
}

// GetTeamForUser picks the user's primary team: the oldest owned team, or
// failing that the team they joined first.
func (s *TeamService) GetTeamForUser(ctx context.Context, userID uuid.UUID) (models.UserTeam, error) {
	const op = "service.team.GetTeamForUser"

	team, err := s.teamRepo.GetTeamForUser(ctx, userID)
	if err != nil {
		return models.UserTeam{}, fmt.Errorf("%s: %w", op, err)
	}

	return team, nil
}

func (s *TeamService) ListTeamsForUser(ctx context.Context, userID uuid.UUID) ([]models.UserTeam, error) {
	const op = "service.team.ListTeamsForUser"

	teams, err := s.teamRepo.ListTeamsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return teams, nil
}

func (s *TeamService) RenameTeam(ctx context.Context, actor, teamID uuid.UUID, name string) (models.Team, error) {
	const op = "service.team.RenameTeam"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID.String()),
	)

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Team{}, fmt.Errorf("%s: %w", op, apperrors.ErrTeamNameRequired)
	}

	if _, err := s.requireOwner(ctx, actor, teamID); err != nil {
		log.Warn("rename rejected", sl.Err(err))
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}

	team, err := s.teamRepo.RenameTeam(ctx, teamID, name)
	if err != nil {
		log.Warn("failed to rename team", sl.Err(err))
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("team renamed")
	return team, nil
}

func (s *TeamService) TransferOwnership(ctx context.Context, actor, teamID, newOwner uuid.UUID) (models.Team, error) {
	const op = "service.team.TransferOwnership"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID.String()),
		slog.String("new_owner", newOwner.String()),
	)
	log.Info("attempting to transfer ownership")

	if _, err := s.requireOwner(ctx, actor, teamID); err != nil {
		log.Warn("transfer rejected", sl.Err(err))
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}

	team, err := s.teamRepo.TransferOwnership(ctx, teamID, newOwner)
	if err != nil {
		log.Warn("failed to transfer ownership", sl.Err(err))
		return models.Team{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("ownership transferred")
	return team, nil
}

func (s *TeamService) DeleteTeam(ctx context.Context, actor, teamID uuid.UUID) error {
	const op = "service.team.DeleteTeam"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID.String()),
	)
	log.Info("attempting to delete team")

	if _, err := s.requireOwner(ctx, actor, teamID); err != nil {
		log.Warn("delete rejected", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.teamRepo.DeleteTeamIfEmpty(ctx, teamID); err != nil {
		log.Warn("failed to delete team", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("team deleted")
	return nil
}

// MigrateMembers moves the members of src into dest and deletes src. The actor
// has to own both teams.
func (s *TeamService) MigrateMembers(ctx context.Context, actor, src, dest uuid.UUID) (int, error) {
	const op = "service.team.MigrateMembers"

	log := s.log.With(
		slog.String("op", op),
		slog.String("src", src.String()),
		slog.String("dest", dest.String()),
	)
	log.Info("attempting to migrate members")

	for _, id := range []uuid.UUID{src, dest} {
		if _, err := s.requireOwner(ctx, actor, id); err != nil {
			log.Warn("migration rejected", sl.Err(err))
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	moved, err := s.teamRepo.MigrateMembersAndDelete(ctx, src, dest)
	if err != nil {
		log.Error("failed to migrate members", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("members migrated", slog.Int("moved", moved))
	return moved, nil
}

func (s *TeamService) AddMember(ctx context.Context, actor, teamID, userID uuid.UUID) (models.Membership, error) {
	const op = "service.team.AddMember"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID.String()),
		slog.String("user_id", userID.String()),
	)
	log.Info("attempting to add member")

	if _, err := s.requireOwner(ctx, actor, teamID); err != nil {
		log.Warn("add member rejected", sl.Err(err))
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	m, err := s.teamRepo.AddMember(ctx, userID, teamID)
	if err != nil {
		log.Warn("failed to add member", sl.Err(err))
		return models.Membership{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("member added")
	return m, nil
}

// RemoveMember lets the owner remove anyone, and lets a member leave.
func (s *TeamService) RemoveMember(ctx context.Context, actor, teamID, userID uuid.UUID) error {
	const op = "service.team.RemoveMember"

	log := s.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID.String()),
		slog.String("user_id", userID.String()),
	)
	log.Info("attempting to remove member")

	if actor != userID {
		if _, err := s.requireOwner(ctx, actor, teamID); err != nil {
			log.Warn("remove member rejected", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.teamRepo.RemoveMember(ctx, userID, teamID); err != nil {
		log.Warn("failed to remove member", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("member removed")
	return nil
}

func (s *TeamService) ListMembers(ctx context.Context, actor, teamID uuid.UUID, page, perPage int) (models.MemberPage, error) {
	const op = "service.team.ListMembers"

	if _, err := s.requireAccess(ctx, actor, teamID); err != nil {
		return models.MemberPage{}, fmt.Errorf("%s: %w", op, err)
	}

	page, perPage = models.NormalizePage(page, perPage)

	members, total, err := s.teamRepo.ListMembers(ctx, teamID, page, perPage)
	if err != nil {
		s.log.With(slog.String("op", op)).Error("failed to list members", sl.Err(err))
		return models.MemberPage{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.MemberPage{Members: members, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *TeamService) requireOwner(ctx context.Context, actor, teamID uuid.UUID) (models.Team, error) {
	team, err := s.teamRepo.GetTeam(ctx, teamID)
	if err != nil {
		return models.Team{}, err
	}
	if team.Owner != actor {
		return models.Team{}, apperrors.ErrNotTeamOwner
	}
	return team, nil
}

func (s *TeamService) requireAccess(ctx context.Context, actor, teamID uuid.UUID) (models.Team, error) {
	team, err := s.teamRepo.GetTeam(ctx, teamID)
	if err != nil {
		return models.Team{}, err
	}
	if team.Owner == actor {
		return team, nil
	}

	member, err := s.teamRepo.IsMember(ctx, actor, teamID)
	if err != nil {
		return models.Team{}, err
	}
	if !member {
		return models.Team{}, apperrors.ErrNoTeamAccess
	}
	return team, nil
}
