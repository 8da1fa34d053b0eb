package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/http/v1/response"
	"ledger-auth/internal/lib/logger/sl"
)

type (
	TeamNameRequest struct {
		Name string `json:"name"`
	}

	TransferTeamRequest struct {
		NewOwner uuid.UUID `json:"new_owner"`
	}

	MigrateTeamRequest struct {
		DestinationTeamID uuid.UUID `json:"destination_team_id"`
	}

	AddMemberRequest struct {
		UserID uuid.UUID `json:"user_id"`
	}

	TeamResponse struct {
		Team models.Team `json:"team"`
	}

	UserTeamResponse struct {
		Team models.UserTeam `json:"team"`
	}

	UserTeamsResponse struct {
		Teams []models.UserTeam `json:"teams"`
	}

	MigrateTeamResponse struct {
		Moved int `json:"moved"`
	}

	MembershipResponse struct {
		Membership models.Membership `json:"membership"`
	}
)

type TeamManager interface {
	CreateTeam(ctx context.Context, owner uuid.UUID, name string) (models.Team, error)
	GetTeam(ctx context.Context, actor, teamID uuid.UUID) (models.Team, error)
	ListOwnedTeams(ctx context.Context, owner uuid.UUID, page, perPage int) (models.TeamPage, error)
	GetTeamForUser(ctx context.Context, userID uuid.UUID) (models.UserTeam, error)
	ListTeamsForUser(ctx context.Context, userID uuid.UUID) ([]models.UserTeam, error)
	RenameTeam(ctx context.Context, actor, teamID uuid.UUID, name string) (models.Team, error)
	TransferOwnership(ctx context.Context, actor, teamID, newOwner uuid.UUID) (models.Team, error)
	DeleteTeam(ctx context.Context, actor, teamID uuid.UUID) error
	MigrateMembers(ctx context.Context, actor, src, dest uuid.UUID) (int, error)
	AddMember(ctx context.Context, actor, teamID, userID uuid.UUID) (models.Membership, error)
	RemoveMember(ctx context.Context, actor, teamID, userID uuid.UUID) error
	ListMembers(ctx context.Context, actor, teamID uuid.UUID, page, perPage int) (models.MemberPage, error)
}

type TeamHandler struct {
	teams TeamManager
	log   *slog.Logger
}

func NewTeamHandler(teams TeamManager, log *slog.Logger) *TeamHandler {
	return &TeamHandler{
		teams: teams,
		log:   log,
	}
}

func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.CreateTeam"

	log := h.log.With(slog.String("op", op))

	actor, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req TeamNameRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("invalid request body", sl.Err(err))
		response.Error(w, err)
		return
	}

	team, err := h.teams.CreateTeam(r.Context(), actor, req.Name)
	if err != nil {
		log.Error("failed to create team", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, TeamResponse{Team: team})
	log.Info("team created", slog.String("team_id", team.ID.String()))
}

func (h *TeamHandler) ListOwnedTeams(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.ListOwnedTeams"

	log := h.log.With(slog.String("op", op))

	actor, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	page, perPage, err := pageQuery(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	teams, err := h.teams.ListOwnedTeams(r.Context(), actor, page, perPage)
	if err != nil {
		log.Error("failed to list teams", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, teams)
}

func (h *TeamHandler) GetMyTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.GetMyTeam"

	log := h.log.With(slog.String("op", op))

	actor, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	team, err := h.teams.GetTeamForUser(r.Context(), actor)
	if err != nil {
		log.Warn("failed to get team for user", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, UserTeamResponse{Team: team})
}

func (h *TeamHandler) ListMyTeams(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.ListMyTeams"

	log := h.log.With(slog.String("op", op))

	actor, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	teams, err := h.teams.ListTeamsForUser(r.Context(), actor)
	if err != nil {
		log.Error("failed to list teams for user", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, UserTeamsResponse{Teams: teams})
}

func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.GetTeam"

	log := h.log.With(slog.String("op", op))

	actor, teamID, err := actorAndTeam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	team, err := h.teams.GetTeam(r.Context(), actor, teamID)
	if err != nil {
		log.Warn("failed to get team", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, TeamResponse{Team: team})
}

func (h *TeamHandler) RenameTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.RenameTeam"

	log := h.log.With(slog.String("op", op))

	actor, teamID, err := actorAndTeam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req TeamNameRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	team, err := h.teams.RenameTeam(r.Context(), actor, teamID, req.Name)
	if err != nil {
		log.Warn("failed to rename team", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, TeamResponse{Team: team})
}

func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.DeleteTeam"

	log := h.log.With(slog.String("op", op))

	actor, teamID, err := actorAndTeam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.teams.DeleteTeam(r.Context(), actor, teamID); err != nil {
		log.Warn("failed to delete team", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.NoContent(w)
}

func (h *TeamHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.TransferOwnership"

	log := h.log.With(slog.String("op", op))

	actor, teamID, err := actorAndTeam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req TransferTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.NewOwner == uuid.Nil {
		response.Error(w, apperrors.ErrInvalidUserID)
		return
	}

	team, err := h.teams.TransferOwnership(r.Context(), actor, teamID, req.NewOwner)
	if err != nil {
		log.Warn("failed to transfer ownership", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, TeamResponse{Team: team})
	log.Info("ownership transferred", slog.String("team_id", teamID.String()))
}

func (h *TeamHandler) MigrateMembers(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.MigrateMembers"

	log := h.log.With(slog.String("op", op))

	actor, teamID, err := actorAndTeam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req MigrateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.DestinationTeamID == uuid.Nil {
		response.Error(w, apperrors.ErrInvalidTeamID)
		return
	}

	moved, err := h.teams.MigrateMembers(r.Context(), actor, teamID, req.DestinationTeamID)
	if err != nil {
		log.Warn("failed to migrate members", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, MigrateTeamResponse{Moved: moved})
}

func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.ListMembers"

	log := h.log.With(slog.String("op", op))

	actor, teamID, err := actorAndTeam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	page, perPage, err := pageQuery(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	members, err := h.teams.ListMembers(r.Context(), actor, teamID, page, perPage)
	if err != nil {
		log.Warn("failed to list members", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, members)
}

func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.AddMember"

	log := h.log.With(slog.String("op", op))

	actor, teamID, err := actorAndTeam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req AddMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.UserID == uuid.Nil {
		response.Error(w, apperrors.ErrInvalidUserID)
		return
	}

	membership, err := h.teams.AddMember(r.Context(), actor, teamID, req.UserID)
	if err != nil {
		log.Warn("failed to add member", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, MembershipResponse{Membership: membership})
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.RemoveMember"

	log := h.log.With(slog.String("op", op))

	actor, teamID, err := actorAndTeam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	userID, err := uuidParam(r, "userID", apperrors.ErrInvalidUserID)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.teams.RemoveMember(r.Context(), actor, teamID, userID); err != nil {
		log.Warn("failed to remove member", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.NoContent(w)
}

func actorAndTeam(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	actor, err := caller(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	teamID, err := uuidParam(r, "teamID", apperrors.ErrInvalidTeamID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return actor, teamID, nil
}
